package profiles

import (
	"context"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has no profile yet.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// Upsert creates the profile on first use; ID and CreatedAt are filled in.
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}
