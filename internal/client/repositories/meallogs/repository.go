// Package meallogs persists natural-language meal logs and their processing
// results in the client cache.
package meallogs

import (
	"context"

	"github.com/fitiq/fitiq/internal/client/models"
)

type Repository interface {
	Insert(ctx context.Context, m *models.MealLog) error
	Get(ctx context.Context, id string) (*models.MealLog, error)
	// FindByBackendID returns common.ErrorNotFound when no local log was
	// accepted under backendID.
	FindByBackendID(ctx context.Context, backendID string) (*models.MealLog, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.MealLog, error)
	// Accept records the backend ID after submission. A completed or failed
	// log keeps its status.
	Accept(ctx context.Context, id, backendID string, status models.MealLogStatus) error
	UpdateStatus(ctx context.Context, id string, status models.MealLogStatus) error
	Complete(ctx context.Context, id string, items []models.MealItem, totalCalories float64) error
}
