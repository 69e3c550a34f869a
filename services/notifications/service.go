package notifications

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"watchdeck/internal/database"
	"watchdeck/models"
)

// Notification kinds understood by the inbox.
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

// Repository is the persistence surface the inbox needs. Implemented by
// database.NotificationRepository.
type Repository interface {
	Insert(n models.Notification) error
	List(limit int) ([]models.Notification, error)
	UnreadCount() (int, error)
	MarkRead(id string) error
	MarkAllRead() error
	Delete(id string) error
	Purge(olderThan time.Time) (int64, error)
}

// Forwarder pushes a notification to an external delivery channel.
type Forwarder interface {
	Forward(title, message string) error
}

// Service manages the notification inbox: local entries raised by the
// daemon, server entries arriving over the realtime channel, and optional
// forwarding to a push provider.
type Service struct {
	repo    Repository
	limiter *rate.Limiter

	fwdMu     sync.RWMutex
	forwarder Forwarder
}

// NewService creates the inbox service. forwarder may be nil when no push
// provider is configured.
func NewService(repo Repository, forwarder Forwarder) *Service {
	return &Service{
		repo:      repo,
		forwarder: forwarder,
		// Push providers throttle hard; one message every few seconds
		// is plenty for a personal inbox.
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

// Notify raises a local notification and stores it unread.
func (s *Service) Notify(kind, title, message string, itemID int64) (models.Notification, error) {
	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      normalizeType(kind),
		Title:     title,
		Message:   message,
		ItemID:    itemID,
		CreatedAt: time.Now().UTC(),
	}
	if n.Title == "" {
		return models.Notification{}, errors.New("notification title is required")
	}

	if err := s.repo.Insert(n); err != nil {
		return models.Notification{}, fmt.Errorf("store notification: %w", err)
	}

	go s.forward(n)
	return n, nil
}

// Record stores a server-originated notification, keeping the server's id
// so cross-session read/delete events can find it later.
func (s *Service) Record(n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Type = normalizeType(n.Type)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Insert(n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if !n.Read {
		go s.forward(n)
	}
	return nil
}

// ApplyState applies a cross-session inbox change (another device marked
// something read or deleted it). An id this device never stored is not an
// error; sessions drift.
func (s *Service) ApplyState(state models.NotificationState) error {
	var err error
	switch state.Action {
	case models.NotificationActionRead:
		err = s.repo.MarkRead(state.ID)
	case models.NotificationActionReadAll:
		err = s.repo.MarkAllRead()
	case models.NotificationActionDelete:
		err = s.repo.Delete(state.ID)
	default:
		return fmt.Errorf("unknown notification action %q", state.Action)
	}

	if errors.Is(err, database.ErrNotificationNotFound) {
		log.Printf("[notifications] %s for unknown id %s ignored", state.Action, state.ID)
		return nil
	}
	return err
}

// List returns the newest notifications, up to limit.
func (s *Service) List(limit int) ([]models.Notification, error) {
	return s.repo.List(limit)
}

// UnreadCount reports how many inbox entries are unread.
func (s *Service) UnreadCount() (int, error) {
	return s.repo.UnreadCount()
}

// MarkRead marks a single notification read.
func (s *Service) MarkRead(id string) error {
	return s.repo.MarkRead(id)
}

// MarkAllRead marks every notification read.
func (s *Service) MarkAllRead() error {
	return s.repo.MarkAllRead()
}

// Delete removes a notification from the inbox.
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// Purge removes notifications older than the retention window.
func (s *Service) Purge(olderThan time.Time) (int64, error) {
	removed, err := s.repo.Purge(olderThan)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("[notifications] purged %d old notifications", removed)
	}
	return removed, nil
}

// SetForwarder replaces the push forwarder, typically after a settings
// change. A nil forwarder disables forwarding.
func (s *Service) SetForwarder(f Forwarder) {
	s.fwdMu.Lock()
	s.forwarder = f
	s.fwdMu.Unlock()
}

func (s *Service) forward(n models.Notification) {
	s.fwdMu.RLock()
	f := s.forwarder
	s.fwdMu.RUnlock()
	if f == nil {
		return
	}
	if !s.limiter.Allow() {
		log.Printf("[notifications] push skipped (rate limited): %s", n.Title)
		return
	}
	if err := f.Forward(n.Title, n.Message); err != nil {
		log.Printf("[notifications] push failed: %v", err)
	}
}

func normalizeType(kind string) string {
	switch kind {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return kind
	default:
		return TypeInfo
	}
}
