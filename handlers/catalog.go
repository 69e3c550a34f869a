package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"watchdeck/models"
	"watchdeck/services/catalog"
)

type catalogService interface {
	Configured() bool
	Search(ctx context.Context, query string, page int) ([]models.CatalogItem, error)
	Trending(ctx context.Context) ([]models.CatalogItem, error)
	PopularMovies(ctx context.Context, page int) ([]models.CatalogItem, error)
	PopularTV(ctx context.Context, page int) ([]models.CatalogItem, error)
	Details(ctx context.Context, mediaType string, id int64) (*models.CatalogItem, error)
	Season(ctx context.Context, tvID int64, seasonNumber int) (*models.SeasonDetails, error)
	WatchProviders(ctx context.Context, mediaType string, id int64) (*models.WatchProviders, error)
	LogoURL(ctx context.Context, mediaType string, id int64) (string, error)
}

var _ catalogService = (*catalog.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

// Search looks up movies and shows by title. ?query= is the search text,
// ?page= the result page.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := queryPage(r)

	items, err := h.Service.Search(r.Context(), query, page)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeCatalogList(w, items)
}

func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Trending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeCatalogList(w, items)
}

func (h *CatalogHandler) PopularMovies(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.PopularMovies(r.Context(), queryPage(r))
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeCatalogList(w, items)
}

func (h *CatalogHandler) PopularTV(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.PopularTV(r.Context(), queryPage(r))
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeCatalogList(w, items)
}

// Details returns one title with its appended credits, videos, seasons and
// related lists.
func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := catalogRef(w, r)
	if !ok {
		return
	}

	item, err := h.Service.Details(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// Season returns the episode list for one season of a show.
func (h *CatalogHandler) Season(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "show id must be numeric", http.StatusBadRequest)
		return
	}
	seasonNumber, err := strconv.Atoi(vars["seasonNumber"])
	if err != nil {
		http.Error(w, "season number must be numeric", http.StatusBadRequest)
		return
	}

	season, err := h.Service.Season(r.Context(), id, seasonNumber)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(season)
}

// Providers returns streaming availability for the configured region.
func (h *CatalogHandler) Providers(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := catalogRef(w, r)
	if !ok {
		return
	}

	providers, err := h.Service.WatchProviders(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(providers)
}

// Logo returns the best title-card logo URL, empty when none exists.
func (h *CatalogHandler) Logo(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := catalogRef(w, r)
	if !ok {
		return
	}

	logo, err := h.Service.LogoURL(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"logoUrl": logo,
	})
}

func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func catalogRef(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "catalog id must be numeric", http.StatusBadRequest)
		return "", 0, false
	}
	return vars["mediaType"], id, true
}

func queryPage(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

func writeCatalogList(w http.ResponseWriter, items []models.CatalogItem) {
	if items == nil {
		items = []models.CatalogItem{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func catalogStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrUnknownMediaType):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
