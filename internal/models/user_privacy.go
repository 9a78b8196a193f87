package models

import (
	"time"
)

// User represents the public profile (anonymous identity)
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}

// SafetyEvent records a self-harm signal found in a user's message.
type SafetyEvent struct {
	UserID  string
	Source  string
	Matched []string
}
