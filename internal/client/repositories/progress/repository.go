// Package progress persists metric entries in the client cache.
package progress

import (
	"context"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
)

// Filter narrows ListByUser. Zero values mean no restriction.
type Filter struct {
	Type  models.MetricType
	From  *time.Time
	To    *time.Time
	Limit int
}

type Repository interface {
	Insert(ctx context.Context, e *models.ProgressEntry) error
	// Get returns common.ErrorNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.ProgressEntry, error)
	// FindDuplicate returns the oldest entry with the same dedup key, or
	// (nil, nil).
	FindDuplicate(ctx context.Context, key models.DedupKey) (*models.ProgressEntry, error)
	ListByUser(ctx context.Context, userID string, f Filter) ([]*models.ProgressEntry, error)
	ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.ProgressEntry, error)
	MarkSynced(ctx context.Context, id, backendID string) error
	MarkFailed(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
}
