// Package metadata is a small key/value store in the client cache for values
// that do not deserve a table: the sync cursor, the current session and the
// token store salt.
package metadata

import (
	"context"
	"time"
)

// Well-known keys.
const (
	KeyCurrentUserID = "current_user_id"
	KeyCurrentEmail  = "current_email"
	KeyLastSyncAt    = "last_sync_at"
	KeyTokenSalt     = "token_salt"
	KeyAuthToken     = "auth_token"
)

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
