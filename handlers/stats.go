package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"watchdeck/models"
	"watchdeck/services/server"
	"watchdeck/services/watchlist"
)

type statsSource interface {
	Stats() models.WatchStats
}

var _ statsSource = (*watchlist.Store)(nil)

type storageStatsSource interface {
	StorageStats(ctx context.Context) (models.StorageStats, error)
}

var _ storageStatsSource = (*server.Client)(nil)

type StatsHandler struct {
	Store   statsSource
	Backend storageStatsSource
}

func NewStatsHandler(store statsSource, backend storageStatsSource) *StatsHandler {
	return &StatsHandler{Store: store, Backend: backend}
}

// Watchlist returns the locally computed viewing statistics.
func (h *StatsHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Store.Stats())
}

// Storage proxies the server's per-account storage usage.
func (h *StatsHandler) Storage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Backend.StorageStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *StatsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
