package models

import "time"

// Notification is one entry in the user's inbox. Server-originated entries
// arrive over the realtime channel; the daemon also raises local ones (for
// example when an import finishes).
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // info | success | warning | error
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	ItemID    int64     `json:"itemId,omitempty"` // related watchlist item, when any
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification actions mirrored across sessions.
const (
	NotificationActionRead    = "read"
	NotificationActionReadAll = "read-all"
	NotificationActionDelete  = "delete"
)

// NotificationState is a cross-session state change for the inbox, carried
// by notification:read, notification:read-all and notification:delete
// events.
type NotificationState struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"` // empty for read-all
}
