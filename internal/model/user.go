package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash *string   `db:"password_hash" json:"-"` // Nullable for OAuth-only users
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// SessionUser is the public view of the signed-in user.
func (u *User) SessionUser() *SessionUser {
	return &SessionUser{ID: u.ID, Email: u.Email}
}
