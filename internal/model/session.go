package model

import "time"

// SessionUser is what the current-session view exposes: id and email only.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	User      SessionUser `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}
