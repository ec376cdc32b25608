// Package outbox persists local mutations waiting to be delivered to the
// backend.
package outbox

import (
	"context"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
)

type Repository interface {
	// Enqueue stores ev as pending. When a pending event with the same type
	// and entity already exists its payload is replaced instead, so the
	// backend only ever receives the latest state of an entity. ev.ID is set
	// to the ID of the stored event.
	Enqueue(ctx context.Context, ev *models.OutboxEvent) error
	// FetchDue returns up to limit pending events whose next attempt is not
	// after now, oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEvent, error)
	Get(ctx context.Context, id string) (*models.OutboxEvent, error)
	MarkSynced(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
	// RequeueFailed moves every failed event back to pending with a fresh
	// attempt budget and returns the requeued events.
	RequeueFailed(ctx context.Context, now time.Time) ([]*models.OutboxEvent, error)
	Stats(ctx context.Context) (models.OutboxStats, error)
}
