package models

import "time"

// User is the account the watchdeck server authenticated us as.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is the server's answer to login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// StorageStats describes the account's server-side storage usage.
type StorageStats struct {
	ItemCount  int       `json:"itemCount"`
	SizeBytes  int64     `json:"sizeBytes"`
	LimitBytes int64     `json:"limitBytes,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}
