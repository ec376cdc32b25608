package models

import "time"

// RefreshToken is an opaque, single-use token. Rotation deletes the presented
// token and issues a new one.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
