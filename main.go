package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"watchdeck/api"
	"watchdeck/config"
	"watchdeck/handlers"
	"watchdeck/internal/database"
	"watchdeck/internal/nav"
	"watchdeck/models"
	"watchdeck/services/catalog"
	"watchdeck/services/notifications"
	"watchdeck/services/realtime"
	"watchdeck/services/scheduler"
	"watchdeck/services/server"
	"watchdeck/services/session"
	"watchdeck/services/watchlist"
	"watchdeck/utils"
)

// Version is stamped by the release build.
var Version = "dev"

// Server-side notifications older than this are dropped from the local
// inbox at startup.
const notificationRetention = 90 * 24 * time.Hour

func main() {

	portOverride := flag.Int("port", 0, "override server port from config")
	storageDir := flag.String("storage", "", "override storage directory (default: directory of the config file)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("watchdeck %s\n", Version)
		return
	}

	fmt.Println("🚀 watchdeck daemon starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("WATCHDECK_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Everything the daemon persists (session, database, exports) lives
	// under one storage directory next to the config unless overridden.
	storage := strings.TrimSpace(*storageDir)
	if storage == "" {
		storage = filepath.Dir(configPath)
	}
	if err := os.MkdirAll(storage, 0o755); err != nil {
		log.Fatalf("failed to create storage directory: %v", err)
	}

	// Generate the gateway PIN on first run
	settings.Server.PIN = strings.TrimSpace(settings.Server.PIN)
	if settings.Server.PIN == "" {
		pin, err := utils.GeneratePIN()
		if err != nil {
			log.Fatalf("failed to generate PIN: %v", err)
		}
		settings.Server.PIN = pin
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated PIN: %v", err)
		}
		fmt.Println("📱 Configure your frontend to use this 6-digit PIN for authentication.")
	}
	fmt.Printf("🔑 watchdeck PIN: %s\n", settings.Server.PIN)

	// Local cache database: watchlist snapshot + notification inbox
	dbPath := settings.Database.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(storage, dbPath)
	}
	db, err := database.NewDB(database.Config{DatabasePath: dbPath})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	snapshotRepo := database.NewSnapshotRepository(db.Connection())
	notificationRepo := database.NewNotificationRepository(db.Connection())

	// The server client reads its bearer token through the session
	// service; the session service authenticates through the server
	// client. The closure breaks the cycle.
	var sessionSvc *session.Service
	serverClient := server.NewClient(settings.Remote.BaseURL, func() string {
		if sessionSvc == nil {
			return ""
		}
		return sessionSvc.Token()
	})
	sessionSvc, err = session.NewService(storage, serverClient)
	if err != nil {
		log.Fatalf("failed to initialise session: %v", err)
	}

	catalogService := catalog.NewService(catalog.Config{
		BaseURL:      settings.Catalog.BaseURL,
		ImageBaseURL: settings.Catalog.ImageBaseURL,
		APIKey:       settings.Catalog.APIKey,
		Language:     settings.Catalog.Language,
		Region:       settings.Catalog.Region,
	})
	if !catalogService.Configured() {
		log.Printf("warning: no catalog API key configured; search and browse will be unavailable")
	}

	store := watchlist.NewStore(serverClient, snapshotRepo)
	store.Hydrate()

	var forwarder notifications.Forwarder
	if p := settings.Notifications.Pushover; p.Enabled && p.Token != "" {
		forwarder = notifications.NewPushoverForwarder(p.Token, p.UserKey)
		log.Printf("[main] pushover forwarding enabled")
	}
	notificationService := notifications.NewService(notificationRepo, forwarder)
	if _, err := notificationService.Purge(time.Now().Add(-notificationRetention)); err != nil {
		log.Printf("warning: notification purge failed: %v", err)
	}

	// Realtime sync channel. It only ever starts after a successful full
	// load, so the event stream never runs ahead of the first state.
	var channel *realtime.Channel
	if settings.Realtime.Enabled == nil || *settings.Realtime.Enabled {
		channel = realtime.New(realtime.Config{
			URL:        realtime.URLFromBase(settings.Remote.BaseURL),
			Token:      sessionSvc.Token,
			DeviceID:   sessionSvc.DeviceID(),
			MaxBackoff: time.Duration(settings.Realtime.ReconnectMaxSeconds) * time.Second,
		}, &dispatcher{store: store, inbox: notificationService})
	} else {
		log.Printf("[main] realtime channel disabled in settings")
	}

	rootCtx, stopDaemon := context.WithCancel(context.Background())
	defer stopDaemon()

	syncStore := &syncingStore{Store: store}
	if channel != nil {
		syncStore.afterLoad = func() {
			if err := channel.Start(rootCtx); err != nil && !errors.Is(err, realtime.ErrNoToken) {
				log.Printf("[main] realtime channel: %v", err)
			}
		}
	}

	schedulerService := scheduler.NewService(cfgManager, syncStore, serverClient)
	if err := schedulerService.Start(rootCtx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	// Construct router and register API routes
	var r *mux.Router = utils.NewRouter()

	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.SetCatalogService(catalogService)
	settingsHandler.SetNotificationService(notificationService)

	authHandler := handlers.NewAuthHandler(sessionSvc)
	watchlistHandler := handlers.NewWatchlistHandler(syncStore, serverClient)
	transferHandler := handlers.NewTransferHandler(syncStore)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	statsHandler := handlers.NewStatsHandler(store, serverClient)
	notificationsHandler := handlers.NewNotificationsHandler(notificationService)
	tasksHandler := handlers.NewScheduledTasksHandler(cfgManager, schedulerService)

	// Display clients all render off one shared navigation stack held by
	// the daemon, so reconnecting clients come back to the same screen.
	navStack := nav.NewStack(nav.Screen{Name: "home"})

	var stateHandler *handlers.StateHandler
	if channel != nil {
		stateHandler = handlers.NewStateHandler(sessionSvc, channel, navStack)
	} else {
		stateHandler = handlers.NewStateHandler(sessionSvc, nil, navStack)
	}

	api.Register(
		r,
		settings.Server.PIN,
		Version,
		authHandler,
		watchlistHandler,
		transferHandler,
		catalogHandler,
		statsHandler,
		notificationsHandler,
		stateHandler,
		settingsHandler,
		tasksHandler,
	)

	// When a session already exists from a previous run, load the
	// watchlist once in the background; the channel opens on success. A
	// failed load is surfaced and left to the user to retry through
	// POST /api/watchlist/load.
	go func() {
		if settings.Remote.BaseURL == "" {
			log.Printf("[main] no persistence server configured; set remote.baseUrl in settings")
			return
		}
		if !sessionSvc.Authenticated() {
			log.Printf("[main] no session; log in via /api/auth/login to start syncing")
			return
		}
		loadCtx, cancel := context.WithTimeout(rootCtx, 2*time.Minute)
		defer cancel()
		if err := syncStore.Load(loadCtx); err != nil {
			log.Printf("[main] initial watchlist load failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if channel != nil {
		channel.Stop()
	}
	if err := schedulerService.Stop(shutdownCtx); err != nil {
		log.Printf("scheduler shutdown error: %v", err)
	}
	stopDaemon()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// syncingStore wraps the watchlist store so the realtime channel starts
// exactly once, after the first successful full load, no matter whether
// that load came from startup, the HTTP API or the scheduler.
type syncingStore struct {
	*watchlist.Store
	once      sync.Once
	afterLoad func()
}

func (s *syncingStore) Load(ctx context.Context) error {
	if err := s.Store.Load(ctx); err != nil {
		return err
	}
	if s.afterLoad != nil {
		s.once.Do(s.afterLoad)
	}
	return nil
}

// dispatcher routes realtime events to the watchlist store and the
// notification inbox.
type dispatcher struct {
	store *watchlist.Store
	inbox *notifications.Service
}

func (d *dispatcher) HandleItemUpdate(item models.WatchlistItem) {
	d.store.SyncItem(item)
}

func (d *dispatcher) HandleItemDelete(id int64) {
	d.store.RemoveItem(id)
}

func (d *dispatcher) HandleWatchlistSync(items []models.WatchlistItem) {
	d.store.ReplaceAll(items)
}

func (d *dispatcher) HandleNotification(n models.Notification) {
	if err := d.inbox.Record(n); err != nil {
		log.Printf("[main] record notification: %v", err)
	}
}

func (d *dispatcher) HandleNotificationState(state models.NotificationState) {
	if err := d.inbox.ApplyState(state); err != nil {
		log.Printf("[main] apply notification state: %v", err)
	}
}
