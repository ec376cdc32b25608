package mood

import (
	"context"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	// Create inserts e unless an entry with the same ClientID exists, in which
	// case the existing entry is returned with created == false.
	Create(ctx context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error)
	FindByClientID(ctx context.Context, userID, clientID string) (*models.MoodEntry, error)
	List(ctx context.Context, userID string, f models.ListFilter) ([]*models.MoodEntry, error)
}
