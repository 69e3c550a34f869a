package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"watchdeck/internal/database"
	"watchdeck/models"
	"watchdeck/services/notifications"
)

type notificationsService interface {
	List(limit int) ([]models.Notification, error)
	UnreadCount() (int, error)
	MarkRead(id string) error
	MarkAllRead() error
	Delete(id string) error
}

var _ notificationsService = (*notifications.Service)(nil)

type NotificationsHandler struct {
	Service notificationsService
}

func NewNotificationsHandler(service notificationsService) *NotificationsHandler {
	return &NotificationsHandler{Service: service}
}

// List returns stored notifications, newest first. ?limit= caps the result;
// zero means the service default.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.Service.List(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.UnreadCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"count": count,
	})
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := notificationID(w, r)
	if !ok {
		return
	}

	if err := h.Service.MarkRead(id); err != nil {
		http.Error(w, err.Error(), notificationStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.MarkAllRead(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := notificationID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(id); err != nil {
		http.Error(w, err.Error(), notificationStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func notificationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "notification id is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func notificationStatus(err error) int {
	if errors.Is(err, database.ErrNotificationNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
