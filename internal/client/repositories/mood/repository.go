// Package mood persists mood check-ins in the client cache.
package mood

import (
	"context"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
)

type Filter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type Repository interface {
	Insert(ctx context.Context, e *models.MoodEntry) error
	Get(ctx context.Context, id string) (*models.MoodEntry, error)
	FindDuplicate(ctx context.Context, key models.DedupKey) (*models.MoodEntry, error)
	ListByUser(ctx context.Context, userID string, f Filter) ([]*models.MoodEntry, error)
	ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.MoodEntry, error)
	MarkSynced(ctx context.Context, id, backendID string) error
	MarkFailed(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
}
