package progress

import (
	"context"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	// Create inserts e unless an entry with the same ClientID exists, in which
	// case the existing entry is returned with created == false.
	Create(ctx context.Context, e *models.ProgressEntry) (*models.ProgressEntry, bool, error)
	FindByClientID(ctx context.Context, userID, clientID string) (*models.ProgressEntry, error)
	// List returns the newest entries first.
	List(ctx context.Context, userID string, f models.ListFilter) ([]*models.ProgressEntry, error)
}
