package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"watchdeck/config"
	"watchdeck/services/catalog"
	"watchdeck/services/notifications"
)

// SettingsHandler reads and writes the daemon configuration. Services that
// cache settings at startup are hot-reloaded on save.
type SettingsHandler struct {
	Manager             *config.Manager
	CatalogService      *catalog.Service
	NotificationService *notifications.Service
}

func NewSettingsHandler(m *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: m}
}

// SetCatalogService sets the catalog service for hot reloading the API key.
func (h *SettingsHandler) SetCatalogService(cs *catalog.Service) {
	h.CatalogService = cs
}

// SetNotificationService sets the inbox service for hot reloading the push
// forwarder.
func (h *SettingsHandler) SetNotificationService(ns *notifications.Service) {
	h.NotificationService = ns
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	dec := json.NewDecoder(r.Body)
	// Allow unknown fields for backward compatibility with old configs
	if err := dec.Decode(&s); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Manager.Save(s); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.reloadServices(s)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

func (h *SettingsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// reloadServices reloads services that cache configuration at startup
func (h *SettingsHandler) reloadServices(s config.Settings) {
	if h.CatalogService != nil {
		h.CatalogService.UpdateConfig(catalog.Config{
			BaseURL:      s.Catalog.BaseURL,
			ImageBaseURL: s.Catalog.ImageBaseURL,
			APIKey:       s.Catalog.APIKey,
			Language:     s.Catalog.Language,
			Region:       s.Catalog.Region,
		})
		log.Printf("[settings] reloaded catalog service")
	}

	if h.NotificationService != nil {
		if s.Notifications.Pushover.Enabled && s.Notifications.Pushover.Token != "" {
			h.NotificationService.SetForwarder(
				notifications.NewPushoverForwarder(s.Notifications.Pushover.Token, s.Notifications.Pushover.UserKey),
			)
			log.Printf("[settings] pushover forwarding enabled")
		} else {
			h.NotificationService.SetForwarder(nil)
			log.Printf("[settings] pushover forwarding disabled")
		}
	}
}
