// Package refreshtokens declares the server-side repository contract for
// refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, token string) (bool, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
