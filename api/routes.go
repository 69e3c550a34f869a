package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"watchdeck/handlers"
)

// Register mounts API endpoints onto the provided router. Auth and version
// endpoints stay open; everything else sits behind the gateway PIN.
func Register(
	r *mux.Router,
	gatewayPIN string,
	version string,
	authHandler *handlers.AuthHandler,
	watchlistHandler *handlers.WatchlistHandler,
	transferHandler *handlers.TransferHandler,
	catalogHandler *handlers.CatalogHandler,
	statsHandler *handlers.StatsHandler,
	notificationsHandler *handlers.NotificationsHandler,
	stateHandler *handlers.StateHandler,
	settingsHandler *handlers.SettingsHandler,
	tasksHandler *handlers.ScheduledTasksHandler,
) {
	api := r.PathPrefix("/api").Subrouter()

	// Auth routes (no PIN required; login happens before the UI knows it)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/status", authHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/auth/status", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	api.HandleFunc("/auth/me", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/password", authHandler.ChangePassword).Methods(http.MethodPut)
	api.HandleFunc("/auth/password", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/account", authHandler.DeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/auth/account", authHandler.Options).Methods(http.MethodOptions)

	// Version endpoint (public)
	api.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"version": version})
	}).Methods(http.MethodGet, http.MethodOptions)

	// Protected routes - require the gateway PIN
	protected := api.PathPrefix("").Subrouter()
	protected.Use(PinMiddleware(gatewayPIN))

	// Watchlist state and mutations
	protected.HandleFunc("/watchlist", watchlistHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/tags", watchlistHandler.Tags).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist/tags", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/progress", watchlistHandler.Progress).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist/progress", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/search", watchlistHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist/search", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/load", watchlistHandler.Load).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/load", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/load-more/{status}", watchlistHandler.LoadMore).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/load-more/{status}", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/toggle", watchlistHandler.Toggle).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/toggle", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/recommendations", watchlistHandler.Recommendations).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist/recommendations", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/error", watchlistHandler.ClearError).Methods(http.MethodDelete)
	protected.HandleFunc("/watchlist/error", watchlistHandler.Options).Methods(http.MethodOptions)

	// Export and import
	protected.HandleFunc("/watchlist/export", transferHandler.Export).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist/export", transferHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/import", transferHandler.Import).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/import", transferHandler.Options).Methods(http.MethodOptions)

	// Per-item watched state and tags
	protected.HandleFunc("/watchlist/{id}/watched", watchlistHandler.ToggleWatched).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/watched", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/{id}/seasons/{season}/episodes/{episode}", watchlistHandler.ToggleEpisode).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/seasons/{season}/episodes/{episode}", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/{id}/seasons/{season}", watchlistHandler.ToggleSeason).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/seasons/{season}", watchlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/watchlist/{id}/tags", watchlistHandler.UpdateTags).Methods(http.MethodPut)
	protected.HandleFunc("/watchlist/{id}/tags", watchlistHandler.Options).Methods(http.MethodOptions)

	// Viewing statistics
	protected.HandleFunc("/stats", statsHandler.Watchlist).Methods(http.MethodGet)
	protected.HandleFunc("/stats", statsHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/stats/storage", statsHandler.Storage).Methods(http.MethodGet)
	protected.HandleFunc("/stats/storage", statsHandler.Options).Methods(http.MethodOptions)

	// Catalog browsing. Fixed paths are registered before the {mediaType}
	// patterns so "movies" never binds as a media type.
	protected.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/search", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/trending", catalogHandler.Trending).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/trending", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/movies/popular", catalogHandler.PopularMovies).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/movies/popular", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/tv/popular", catalogHandler.PopularTV).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/tv/popular", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/tv/{id}/season/{seasonNumber}", catalogHandler.Season).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/tv/{id}/season/{seasonNumber}", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/{mediaType}/{id}/providers", catalogHandler.Providers).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/{mediaType}/{id}/providers", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/{mediaType}/{id}/logo", catalogHandler.Logo).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/{mediaType}/{id}/logo", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/{mediaType}/{id}", catalogHandler.Details).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/{mediaType}/{id}", catalogHandler.Options).Methods(http.MethodOptions)

	// Notification inbox
	protected.HandleFunc("/notifications", notificationsHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/notifications", notificationsHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/notifications/unread-count", notificationsHandler.UnreadCount).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/unread-count", notificationsHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/notifications/read-all", notificationsHandler.MarkAllRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/read-all", notificationsHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/notifications/{id}/read", notificationsHandler.MarkRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/{id}/read", notificationsHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/notifications/{id}", notificationsHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/notifications/{id}", notificationsHandler.Options).Methods(http.MethodOptions)

	// Client state flags, shared navigation stack and realtime channel health
	protected.HandleFunc("/state/flags", stateHandler.ListFlags).Methods(http.MethodGet)
	protected.HandleFunc("/state/flags", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/flags/{key}", stateHandler.SetFlag).Methods(http.MethodPut)
	protected.HandleFunc("/state/flags/{key}", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/nav", stateHandler.NavCurrent).Methods(http.MethodGet)
	protected.HandleFunc("/state/nav", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/nav/push", stateHandler.NavPush).Methods(http.MethodPost)
	protected.HandleFunc("/state/nav/push", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/nav/pop", stateHandler.NavPop).Methods(http.MethodPost)
	protected.HandleFunc("/state/nav/pop", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/nav/replace", stateHandler.NavReplace).Methods(http.MethodPost)
	protected.HandleFunc("/state/nav/replace", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/state/nav/reset", stateHandler.NavReset).Methods(http.MethodPost)
	protected.HandleFunc("/state/nav/reset", stateHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/realtime/status", stateHandler.RealtimeStatus).Methods(http.MethodGet)
	protected.HandleFunc("/realtime/status", stateHandler.Options).Methods(http.MethodOptions)

	// Daemon settings
	protected.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	protected.HandleFunc("/settings", settingsHandler.PutSettings).Methods(http.MethodPut)
	protected.HandleFunc("/settings", settingsHandler.Options).Methods(http.MethodOptions)

	// Scheduled tasks
	protected.HandleFunc("/tasks", tasksHandler.ListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", tasksHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/tasks/{taskID}", tasksHandler.UpdateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{taskID}", tasksHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/tasks/{taskID}/run", tasksHandler.RunTaskNow).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{taskID}/run", tasksHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/tasks/{taskID}/toggle", tasksHandler.ToggleTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{taskID}/toggle", tasksHandler.Options).Methods(http.MethodOptions)
}
