package models

import "time"

// Auth event actions.
const (
	ActionSignup = "signup"
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// AuthEvent represents one auth_events row.
type AuthEvent struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Action    string    `json:"action"` // signup, login, logout
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
