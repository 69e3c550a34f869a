package models

import "encoding/json"

// Realtime event types pushed by the watchdeck server.
const (
	EventWatchlistUpdate = "watchlist:update"
	EventWatchlistDelete = "watchlist:delete"
	EventWatchlistSync   = "watchlist:sync"

	EventNotificationNew     = "notification:new"
	EventNotificationRead    = "notification:read"
	EventNotificationReadAll = "notification:read-all"
	EventNotificationDelete  = "notification:delete"
)

// Event is the wire envelope on the realtime channel. Payload decoding is
// deferred until the type is known.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DeletePayload is the payload of watchlist:delete events.
type DeletePayload struct {
	ID int64 `json:"id"`
}
