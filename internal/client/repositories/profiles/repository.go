// Package profiles persists the cached UserProfile aggregate.
package profiles

import (
	"context"

	"github.com/fitiq/fitiq/internal/client/models"
)

// Repository stores profiles keyed by a local ID. Several rows may exist for
// one user (older app versions inserted instead of updating); reads always
// return the most recently updated one.
type Repository interface {
	// Get returns the newest profile of userID or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	// Upsert updates the row identified by p.LocalID, or the newest row of the
	// user when LocalID is empty, inserting when there is none. p.LocalID is
	// set on return.
	Upsert(ctx context.Context, p *models.UserProfile) error
	// Insert always adds a new row.
	Insert(ctx context.Context, p *models.UserProfile) error
	// CleanupDuplicates keeps only the most recently updated row per user and
	// returns how many rows were removed.
	CleanupDuplicates(ctx context.Context) (int64, error)
	Count(ctx context.Context, userID string) (int, error)
}
