package services

import (
	"context"
	"errors"
	"time"

	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
)

// ErrNotLoggedIn is returned by use cases that need a current user.
var ErrNotLoggedIn = errors.New("not logged in")

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// User identifies the account the cache belongs to.
type User struct {
	ID    string
	Email string
}

func currentUser(ctx context.Context, meta metadata.Repository) (*User, error) {
	id, err := meta.GetString(ctx, metadata.KeyCurrentUserID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotLoggedIn
	}
	email, err := meta.GetString(ctx, metadata.KeyCurrentEmail)
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Email: email}, nil
}
