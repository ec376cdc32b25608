// Package models holds the backend's persisted entities.
package models

import "time"

type User struct {
	ID        string
	Email     string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
