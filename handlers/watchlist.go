package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"watchdeck/models"
	"watchdeck/services/server"
	"watchdeck/services/watchlist"
)

type watchlistStore interface {
	Load(ctx context.Context) error
	LoadMore(ctx context.Context, status models.WatchStatus) error
	ToggleMembership(ctx context.Context, c models.CatalogItem) (bool, error)
	ToggleMovieWatched(ctx context.Context, id int64) error
	ToggleEpisodeWatched(ctx context.Context, id int64, season, episode int) error
	ToggleSeasonWatched(ctx context.Context, id int64, season int, episodes []int) error
	UpdateTags(ctx context.Context, id int64, tags []string) error
	Buckets(tag string) map[models.WatchStatus][]models.WatchlistItem
	ByStatus(status models.WatchStatus, tag string) []models.WatchlistItem
	Tags() []string
	ProgressMap() map[int64]float64
	FilterLocal(query string) []models.WatchlistItem
	Get(id int64) (models.WatchlistItem, bool)
	CursorFor(status models.WatchStatus) (watchlist.Cursor, bool)
	Loaded() bool
	LastError() string
	ClearError()
	PendingCount() int
}

var _ watchlistStore = (*watchlist.Store)(nil)

type recommendationsSource interface {
	Recommendations(ctx context.Context, refresh bool) ([]models.CatalogItem, error)
}

var _ recommendationsSource = (*server.Client)(nil)

type WatchlistHandler struct {
	Store watchlistStore
	Recs  recommendationsSource
}

func NewWatchlistHandler(store watchlistStore, recs recommendationsSource) *WatchlistHandler {
	return &WatchlistHandler{Store: store, Recs: recs}
}

// List returns the three status buckets plus store health. An optional
// ?tag= filters every bucket to items carrying that tag.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Buckets   map[models.WatchStatus][]models.WatchlistItem `json:"buckets"`
		Loaded    bool                                          `json:"loaded"`
		Pending   int                                           `json:"pending"`
		LastError string                                        `json:"lastError,omitempty"`
	}{
		Buckets:   h.Store.Buckets(tag),
		Loaded:    h.Store.Loaded(),
		Pending:   h.Store.PendingCount(),
		LastError: h.Store.LastError(),
	})
}

func (h *WatchlistHandler) Tags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Store.Tags())
}

func (h *WatchlistHandler) Progress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Store.ProgressMap())
}

// Search filters the local watchlist by title, accent- and case-insensitive.
// It never calls the server; an empty query returns everything.
func (h *WatchlistHandler) Search(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Store.FilterLocal(r.URL.Query().Get("q")))
}

// Load re-fetches every status bucket from the server and replaces local
// state with the result.
func (h *WatchlistHandler) Load(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Load(r.Context()); err != nil {
		http.Error(w, err.Error(), upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Store.Buckets(""))
}

// LoadMore fetches the next page of one status bucket.
func (h *WatchlistHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	status := models.WatchStatus(mux.Vars(r)["status"])

	if err := h.Store.LoadMore(r.Context(), status); err != nil {
		code := upstreamStatus(err)
		switch {
		case errors.Is(err, watchlist.ErrUnknownStatus):
			code = http.StatusBadRequest
		case errors.Is(err, watchlist.ErrNotLoaded):
			code = http.StatusConflict
		}
		http.Error(w, err.Error(), code)
		return
	}

	cursor, _ := h.Store.CursorFor(status)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Cursor watchlist.Cursor       `json:"cursor"`
		Items  []models.WatchlistItem `json:"items"`
	}{
		Cursor: cursor,
		Items:  h.Store.ByStatus(status, ""),
	})
}

// Toggle adds the posted catalog item to the watchlist, or removes it when
// already present.
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var item models.CatalogItem
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	added, err := h.Store.ToggleMembership(r.Context(), item)
	if err != nil {
		code := upstreamStatus(err)
		if errors.Is(err, watchlist.ErrInvalidItem) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"added": added,
		"id":    item.ID,
	})
}

// ToggleWatched flips a movie between watched and unwatched.
func (h *WatchlistHandler) ToggleWatched(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := h.Store.ToggleMovieWatched(r.Context(), id); err != nil {
		http.Error(w, err.Error(), watchedStatus(err))
		return
	}
	h.writeItem(w, id)
}

// ToggleEpisode flips one episode of a show.
func (h *WatchlistHandler) ToggleEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	season, err := strconv.Atoi(vars["season"])
	if err != nil {
		http.Error(w, "season must be numeric", http.StatusBadRequest)
		return
	}
	episode, err := strconv.Atoi(vars["episode"])
	if err != nil {
		http.Error(w, "episode must be numeric", http.StatusBadRequest)
		return
	}

	if err := h.Store.ToggleEpisodeWatched(r.Context(), id, season, episode); err != nil {
		http.Error(w, err.Error(), watchedStatus(err))
		return
	}
	h.writeItem(w, id)
}

// ToggleSeason marks a whole season watched, or unwatched when every listed
// episode is already watched. The body carries the season's episode numbers
// because the store does not know episode counts.
func (h *WatchlistHandler) ToggleSeason(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	season, err := strconv.Atoi(mux.Vars(r)["season"])
	if err != nil {
		http.Error(w, "season must be numeric", http.StatusBadRequest)
		return
	}

	var body struct {
		Episodes []int `json:"episodes"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.ToggleSeasonWatched(r.Context(), id, season, body.Episodes); err != nil {
		code := watchedStatus(err)
		if errors.Is(err, watchlist.ErrNoEpisodes) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}
	h.writeItem(w, id)
}

// UpdateTags replaces an item's tag list.
func (h *WatchlistHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var body struct {
		Tags []string `json:"tags"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateTags(r.Context(), id, body.Tags); err != nil {
		http.Error(w, err.Error(), watchedStatus(err))
		return
	}
	h.writeItem(w, id)
}

// Recommendations proxies the server's picks based on the watchlist.
func (h *WatchlistHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	items, err := h.Recs.Recommendations(r.Context(), refresh)
	if err != nil {
		http.Error(w, err.Error(), upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// ClearError resets the store's error slot.
func (h *WatchlistHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.Store.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *WatchlistHandler) writeItem(w http.ResponseWriter, id int64) {
	item, ok := h.Store.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "item id must be numeric", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// watchedStatus maps store errors from the watched-state mutations.
func watchedStatus(err error) int {
	switch {
	case errors.Is(err, watchlist.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, watchlist.ErrNotAMovie), errors.Is(err, watchlist.ErrNotAShow):
		return http.StatusBadRequest
	}
	return upstreamStatus(err)
}

// upstreamStatus maps persistence errors: the daemon itself is fine, the
// remote server rejected or never saw the write.
func upstreamStatus(err error) int {
	if errors.Is(err, server.ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
