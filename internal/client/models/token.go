package models

import "time"

// AuthToken is the credential pair returned by login, register and refresh.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired reports whether the access token is no longer usable at t.
// A token without an expiry is treated as expired.
func (a AuthToken) IsExpired(t time.Time) bool {
	return a.ExpiresAt.IsZero() || !t.Before(a.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires within d of t.
func (a AuthToken) ExpiresWithin(t time.Time, d time.Duration) bool {
	return a.IsExpired(t.Add(d))
}

func (a AuthToken) IsZero() bool {
	return a.AccessToken == "" && a.RefreshToken == ""
}
