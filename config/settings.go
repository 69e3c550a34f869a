package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings represents the daemon configuration persisted to disk.
type Settings struct {
	Server         ServerSettings         `json:"server"`
	Remote         RemoteSettings         `json:"remote"`
	Catalog        CatalogSettings        `json:"catalog"`
	Database       DatabaseSettings       `json:"database"`
	Realtime       RealtimeSettings       `json:"realtime"`
	Notifications  NotificationSettings   `json:"notifications"`
	ScheduledTasks ScheduledTasksSettings `json:"scheduledTasks"`
	Log            LogConfig              `json:"log"`
}

// ServerSettings configures the local HTTP API.
type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	PIN  string `json:"pin,omitempty"` // gateway PIN; generated on first run when empty
}

// RemoteSettings points at the persistence server holding the account
// and the canonical watchlist.
type RemoteSettings struct {
	BaseURL string `json:"baseUrl"`
}

// CatalogSettings configures the metadata catalog client.
type CatalogSettings struct {
	BaseURL      string `json:"baseUrl"`
	ImageBaseURL string `json:"imageBaseUrl"`
	APIKey       string `json:"apiKey"`
	Language     string `json:"language"`
	Region       string `json:"region"` // watch-provider region, ISO 3166-1
}

// DatabaseSettings configures the local cache database.
type DatabaseSettings struct {
	Path string `json:"path"`
}

// RealtimeSettings configures the websocket sync channel.
type RealtimeSettings struct {
	Enabled             *bool `json:"enabled"`
	ReconnectMaxSeconds int   `json:"reconnectMaxSeconds"`
}

// NotificationSettings configures optional push forwarding.
type NotificationSettings struct {
	Pushover PushoverSettings `json:"pushover"`
}

type PushoverSettings struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	UserKey string `json:"userKey,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// ScheduledTaskType defines the type of scheduled task.
type ScheduledTaskType string

const (
	ScheduledTaskTypeWatchlistRefresh       ScheduledTaskType = "watchlist_refresh"
	ScheduledTaskTypeRecommendationsRefresh ScheduledTaskType = "recommendations_refresh"
)

// ScheduledTaskFrequency defines how often a task runs.
type ScheduledTaskFrequency string

const (
	ScheduledTaskFrequencyHourly ScheduledTaskFrequency = "hourly"
	ScheduledTaskFrequency6Hours ScheduledTaskFrequency = "6hours"
	ScheduledTaskFrequencyDaily  ScheduledTaskFrequency = "daily"
	ScheduledTaskFrequencyWeekly ScheduledTaskFrequency = "weekly"
)

// ValidTaskFrequency reports whether f names a known frequency.
func ValidTaskFrequency(f ScheduledTaskFrequency) bool {
	switch f {
	case ScheduledTaskFrequencyHourly, ScheduledTaskFrequency6Hours,
		ScheduledTaskFrequencyDaily, ScheduledTaskFrequencyWeekly:
		return true
	}
	return false
}

// ScheduledTaskStatus represents the last run status.
type ScheduledTaskStatus string

const (
	ScheduledTaskStatusPending ScheduledTaskStatus = "pending"
	ScheduledTaskStatusRunning ScheduledTaskStatus = "running"
	ScheduledTaskStatusSuccess ScheduledTaskStatus = "success"
	ScheduledTaskStatusError   ScheduledTaskStatus = "error"
)

// ScheduledTask represents a single scheduled task configuration.
type ScheduledTask struct {
	ID         string                 `json:"id"`
	Type       ScheduledTaskType      `json:"type"`
	Name       string                 `json:"name"`
	Enabled    bool                   `json:"enabled"`
	Frequency  ScheduledTaskFrequency `json:"frequency"`
	LastRunAt  *time.Time             `json:"lastRunAt,omitempty"`
	LastStatus ScheduledTaskStatus    `json:"lastStatus"`
	LastError  string                 `json:"lastError,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// ScheduledTasksSettings contains all scheduled task configurations.
type ScheduledTasksSettings struct {
	Tasks                []ScheduledTask `json:"tasks"`
	CheckIntervalSeconds int             `json:"checkIntervalSeconds"`
}

// TaskByID returns a scheduled task by id, or nil when unknown.
func (s *ScheduledTasksSettings) TaskByID(id string) *ScheduledTask {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

func defaultScheduledTasks() []ScheduledTask {
	now := time.Now().UTC()
	return []ScheduledTask{
		{
			ID:         "watchlist-refresh",
			Type:       ScheduledTaskTypeWatchlistRefresh,
			Name:       "Watchlist refresh",
			Enabled:    false,
			Frequency:  ScheduledTaskFrequency6Hours,
			LastStatus: ScheduledTaskStatusPending,
			CreatedAt:  now,
		},
		{
			ID:         "recommendations-refresh",
			Type:       ScheduledTaskTypeRecommendationsRefresh,
			Name:       "Recommendations refresh",
			Enabled:    false,
			Frequency:  ScheduledTaskFrequencyDaily,
			LastStatus: ScheduledTaskStatusPending,
			CreatedAt:  now,
		},
	}
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	realtimeEnabled := true
	return Settings{
		Server: ServerSettings{Host: "127.0.0.1", Port: 7979},
		Remote: RemoteSettings{BaseURL: ""},
		Catalog: CatalogSettings{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p",
			APIKey:       "",
			Language:     "en-US",
			Region:       "US",
		},
		Database: DatabaseSettings{Path: "data/watchdeck.db"},
		Realtime: RealtimeSettings{Enabled: &realtimeEnabled, ReconnectMaxSeconds: 60},
		Notifications: NotificationSettings{
			Pushover: PushoverSettings{Enabled: false},
		},
		ScheduledTasks: ScheduledTasksSettings{
			Tasks:                defaultScheduledTasks(),
			CheckIntervalSeconds: 60,
		},
		Log: LogConfig{
			File:       "logs/watchdeck.log",
			Level:      "info",
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for newly introduced settings when the config
	// predates them.
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "127.0.0.1"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 7979
	}

	if strings.TrimSpace(s.Catalog.BaseURL) == "" {
		s.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if strings.TrimSpace(s.Catalog.ImageBaseURL) == "" {
		s.Catalog.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if strings.TrimSpace(s.Catalog.Language) == "" {
		s.Catalog.Language = "en-US"
	}
	if strings.TrimSpace(s.Catalog.Region) == "" {
		s.Catalog.Region = "US"
	}

	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = "data/watchdeck.db"
	}

	if s.Realtime.Enabled == nil {
		realtimeEnabled := true
		s.Realtime.Enabled = &realtimeEnabled
	}
	if s.Realtime.ReconnectMaxSeconds == 0 {
		s.Realtime.ReconnectMaxSeconds = 60
	}

	if len(s.ScheduledTasks.Tasks) == 0 {
		s.ScheduledTasks.Tasks = defaultScheduledTasks()
	}
	if s.ScheduledTasks.CheckIntervalSeconds == 0 {
		s.ScheduledTasks.CheckIntervalSeconds = 60
	}

	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "logs/watchdeck.log"
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = "info"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 20
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 14
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
