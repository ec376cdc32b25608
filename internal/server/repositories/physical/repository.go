package physical

import (
	"context"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when nothing was stored yet.
	Get(ctx context.Context, userID string) (*models.Physical, error)
	Upsert(ctx context.Context, p *models.Physical) error
}
