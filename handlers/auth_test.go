package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watchdeck/handlers"
	"watchdeck/models"
	"watchdeck/services/server"
	"watchdeck/services/session"
)

// fakeAuthAPI stands in for the remote account endpoints.
type fakeAuthAPI struct {
	token    string
	user     models.User
	loginErr error
}

func (f *fakeAuthAPI) Register(_ context.Context, email, _, name string) (models.AuthResponse, error) {
	user := f.user
	user.Email = email
	user.Name = name
	return models.AuthResponse{Token: f.token, User: user}, nil
}

func (f *fakeAuthAPI) Login(_ context.Context, email, _ string) (models.AuthResponse, error) {
	if f.loginErr != nil {
		return models.AuthResponse{}, f.loginErr
	}
	user := f.user
	user.Email = email
	return models.AuthResponse{Token: f.token, User: user}, nil
}

func (f *fakeAuthAPI) Me(_ context.Context) (models.User, error) {
	return f.user, nil
}

func (f *fakeAuthAPI) ChangePassword(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeAuthAPI) DeleteAccount(_ context.Context) error {
	return nil
}

func newSession(t *testing.T, api session.AuthAPI) (*session.Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := session.NewService(dir, api)
	if err != nil {
		t.Fatalf("failed to create session service: %v", err)
	}
	return svc, dir
}

func TestAuthLoginStoresSession(t *testing.T) {
	api := &fakeAuthAPI{token: "tok-1", user: models.User{ID: "u1"}}
	svc, dir := newSession(t, api)
	h := handlers.NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("unexpected user in response: %+v", user)
	}
	if !svc.Authenticated() {
		t.Fatal("expected service to be authenticated after login")
	}

	// A restart must come back logged in.
	reloaded, err := session.NewService(dir, api)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if reloaded.Token() != "tok-1" {
		t.Fatalf("expected persisted token, got %q", reloaded.Token())
	}
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	svc, _ := newSession(t, &fakeAuthAPI{token: "tok-1"})
	h := handlers.NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","bogus":true}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestAuthLoginMapsUnauthorized(t *testing.T) {
	svc, _ := newSession(t, &fakeAuthAPI{loginErr: server.ErrUnauthorized})
	h := handlers.NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthStatusReportsDevice(t *testing.T) {
	svc, _ := newSession(t, &fakeAuthAPI{token: "tok-1", user: models.User{ID: "u1"}})
	h := handlers.NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	var resp struct {
		Authenticated bool         `json:"authenticated"`
		DeviceID      string       `json:"deviceId"`
		User          *models.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if resp.Authenticated {
		t.Fatal("expected authenticated=false before login")
	}
	if resp.DeviceID == "" {
		t.Fatal("expected a device id on a fresh install")
	}
	if resp.User != nil {
		t.Fatal("expected no user before login")
	}

	if _, err := svc.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !resp.Authenticated || resp.User == nil {
		t.Fatalf("expected an authenticated status with a user, got %+v", resp)
	}
}

func TestAuthLogoutKeepsDeviceID(t *testing.T) {
	svc, _ := newSession(t, &fakeAuthAPI{token: "tok-1"})
	h := handlers.NewAuthHandler(svc)

	if _, err := svc.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	device := svc.DeviceID()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if svc.Authenticated() {
		t.Fatal("expected logout to drop the token")
	}
	if svc.DeviceID() != device {
		t.Fatal("expected the device id to survive logout")
	}
}

func TestAuthMeRequiresSession(t *testing.T) {
	svc, _ := newSession(t, &fakeAuthAPI{token: "tok-1"})
	h := handlers.NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}
