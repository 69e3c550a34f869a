package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"watchdeck/internal/nav"
	"watchdeck/services/realtime"
	"watchdeck/services/session"
)

type flagStore interface {
	Flags() map[string]bool
	SetFlag(name string, value bool) error
}

var _ flagStore = (*session.Service)(nil)

type realtimeSource interface {
	Status() realtime.Status
}

var _ realtimeSource = (*realtime.Channel)(nil)

// StateHandler exposes the small pieces of client state that are neither
// watchlist nor settings: persisted boolean flags, the realtime channel's
// health, and the shared navigation stack thin display clients read their
// screen from. Realtime is nil when the channel is disabled.
type StateHandler struct {
	Flags    flagStore
	Realtime realtimeSource
	Nav      *nav.Stack
}

func NewStateHandler(flags flagStore, rt realtimeSource, stack *nav.Stack) *StateHandler {
	return &StateHandler{Flags: flags, Realtime: rt, Nav: stack}
}

// ListFlags returns every stored flag.
func (h *StateHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Flags.Flags())
}

// SetFlag stores one named boolean, creating it when new.
func (h *StateHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(mux.Vars(r)["key"])
	if key == "" {
		http.Error(w, "flag name is required", http.StatusBadRequest)
		return
	}

	var body struct {
		Value bool `json:"value"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Flags.SetFlag(key, body.Value); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{
		key: body.Value,
	})
}

// RealtimeStatus reports the event channel's connection state.
func (h *StateHandler) RealtimeStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Enabled bool `json:"enabled"`
		realtime.Status
	}{}
	if h.Realtime != nil {
		resp.Enabled = true
		resp.Status = h.Realtime.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// NavCurrent returns the screen on top of the navigation stack.
func (h *StateHandler) NavCurrent(w http.ResponseWriter, r *http.Request) {
	h.writeNav(w)
}

// NavPush puts a screen on top of the stack.
func (h *StateHandler) NavPush(w http.ResponseWriter, r *http.Request) {
	screen, ok := decodeScreen(w, r)
	if !ok {
		return
	}
	h.Nav.Push(screen)
	h.writeNav(w)
}

// NavPop goes back one screen. Backing out of the root screen fails.
func (h *StateHandler) NavPop(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Nav.Pop(); !ok {
		http.Error(w, "cannot go back past the root screen", http.StatusConflict)
		return
	}
	h.writeNav(w)
}

// NavReplace swaps the top screen in place.
func (h *StateHandler) NavReplace(w http.ResponseWriter, r *http.Request) {
	screen, ok := decodeScreen(w, r)
	if !ok {
		return
	}
	h.Nav.Replace(screen)
	h.writeNav(w)
}

// NavReset drops the whole stack and installs a new root.
func (h *StateHandler) NavReset(w http.ResponseWriter, r *http.Request) {
	screen, ok := decodeScreen(w, r)
	if !ok {
		return
	}
	h.Nav.Reset(screen)
	h.writeNav(w)
}

func (h *StateHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *StateHandler) writeNav(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Current nav.Screen `json:"current"`
		Depth   int        `json:"depth"`
	}{
		Current: h.Nav.Current(),
		Depth:   h.Nav.Depth(),
	})
}

func decodeScreen(w http.ResponseWriter, r *http.Request) (nav.Screen, bool) {
	var screen nav.Screen
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&screen); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nav.Screen{}, false
	}
	screen.Name = strings.TrimSpace(screen.Name)
	if screen.Name == "" {
		http.Error(w, "screen name is required", http.StatusBadRequest)
		return nav.Screen{}, false
	}
	return screen, true
}
