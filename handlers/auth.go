package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"watchdeck/models"
	"watchdeck/services/server"
	"watchdeck/services/session"
)

type sessionService interface {
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, email, password, name string) (models.User, error)
	Logout() error
	ChangePassword(ctx context.Context, current, next string) error
	DeleteAccount(ctx context.Context) error
	RefreshUser(ctx context.Context) (models.User, error)
	Authenticated() bool
	DeviceID() string
	User() (models.User, bool)
}

var _ sessionService = (*session.Service)(nil)

type AuthHandler struct {
	Session sessionService
}

func NewAuthHandler(sessionSvc sessionService) *AuthHandler {
	return &AuthHandler{Session: sessionSvc}
}

// Login authenticates against the remote server and stores the session
// locally.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Session.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		http.Error(w, err.Error(), authStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Register creates a remote account and logs straight into it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Session.Register(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		http.Error(w, err.Error(), authStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Logout discards the local session. The server keeps no session state, so
// there is nothing to revoke remotely.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Logout(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status reports whether a session exists without touching the network.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Authenticated bool         `json:"authenticated"`
		DeviceID      string       `json:"deviceId"`
		User          *models.User `json:"user,omitempty"`
	}{
		Authenticated: h.Session.Authenticated(),
		DeviceID:      h.Session.DeviceID(),
	}
	if user, ok := h.Session.User(); ok {
		resp.User = &user
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Me re-fetches the account profile from the server.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Session.RefreshUser(r.Context())
	if err != nil {
		http.Error(w, err.Error(), authStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Session.ChangePassword(r.Context(), body.CurrentPassword, body.NewPassword); err != nil {
		http.Error(w, err.Error(), authStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount removes the remote account and clears the local session.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.DeleteAccount(r.Context()); err != nil {
		http.Error(w, err.Error(), authStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, server.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
