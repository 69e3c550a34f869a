package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"watchdeck/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// AuthAPI is the slice of the persistence server the session layer needs.
// Implemented by server.Client.
type AuthAPI interface {
	Register(ctx context.Context, email, password, name string) (models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	Me(ctx context.Context) (models.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	DeleteAccount(ctx context.Context) error
}

// state is what gets persisted to session.json.
type state struct {
	Token     string          `json:"token,omitempty"`
	User      *models.User    `json:"user,omitempty"`
	DeviceID  string          `json:"deviceId"`
	Flags     map[string]bool `json:"flags,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Service holds the authenticated session: the bearer token, a cached
// copy of the account, a stable device id for the realtime handshake,
// and small UI flags that should survive restarts.
type Service struct {
	api  AuthAPI
	path string

	mu    sync.RWMutex
	state state
}

// NewService loads (or initializes) the session from the storage
// directory. A fresh install gets a new device id immediately so the
// realtime handshake has one before the first login.
func NewService(storageDir string, api AuthAPI) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	svc := &Service{
		api:  api,
		path: filepath.Join(storageDir, "session.json"),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	if svc.state.DeviceID == "" {
		svc.mu.Lock()
		svc.state.DeviceID = uuid.NewString()
		err := svc.saveLocked()
		svc.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	return svc, nil
}

// Login authenticates against the server and stores the session.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	return s.adopt(resp)
}

// Register creates an account and stores the resulting session.
func (s *Service) Register(ctx context.Context, email, password, name string) (models.User, error) {
	resp, err := s.api.Register(ctx, email, password, name)
	if err != nil {
		return models.User{}, err
	}
	return s.adopt(resp)
}

// Logout drops the token and cached user. The device id and UI flags
// survive so a later login looks like the same device.
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = ""
	s.state.User = nil
	return s.saveLocked()
}

// ChangePassword changes the account password. The token stays valid;
// the server does not rotate it on password change.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return s.api.ChangePassword(ctx, current, next)
}

// DeleteAccount removes the account server-side and clears the session.
func (s *Service) DeleteAccount(ctx context.Context) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	if err := s.api.DeleteAccount(ctx); err != nil {
		return err
	}
	return s.Logout()
}

// RefreshUser re-fetches the account and updates the cached copy.
func (s *Service) RefreshUser(ctx context.Context) (models.User, error) {
	if !s.Authenticated() {
		return models.User{}, ErrNotAuthenticated
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = &user
	if err := s.saveLocked(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Token returns the current bearer token, empty when logged out. Safe to
// hand to clients as a callback; it always reflects the live session.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// DeviceID returns this install's stable device identifier.
func (s *Service) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DeviceID
}

// Authenticated reports whether a token is present.
func (s *Service) Authenticated() bool {
	return s.Token() != ""
}

// User returns the cached account, when any.
func (s *Service) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return models.User{}, false
	}
	return *s.state.User, true
}

// Flag returns a persisted UI flag.
func (s *Service) Flag(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Flags[name]
}

// Flags returns a copy of all persisted UI flags.
func (s *Service) Flags() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flags := make(map[string]bool, len(s.state.Flags))
	for k, v := range s.state.Flags {
		flags[k] = v
	}
	return flags
}

// SetFlag persists a UI flag.
func (s *Service) SetFlag(name string, value bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("flag name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Flags == nil {
		s.state.Flags = make(map[string]bool)
	}
	s.state.Flags[name] = value
	return s.saveLocked()
}

func (s *Service) adopt(resp models.AuthResponse) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := resp.User
	s.state.Token = resp.Token
	s.state.User = &user
	if err := s.saveLocked(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var stored state
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	s.state = stored
	return nil
}

func (s *Service) saveLocked() error {
	s.state.UpdatedAt = time.Now().UTC()

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.state); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode session: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync session: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close session temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}
