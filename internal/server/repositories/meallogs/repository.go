package meallogs

import (
	"context"

	"github.com/fitiq/fitiq/internal/server/models"
)

type Repository interface {
	// Create inserts m unless a log with the same ClientID exists, in which
	// case the existing log is returned with created == false.
	Create(ctx context.Context, m *models.MealLog) (*models.MealLog, bool, error)
	// Get returns common.ErrorNotFound when the log does not exist or belongs
	// to another user.
	Get(ctx context.Context, userID, id string) (*models.MealLog, error)
	List(ctx context.Context, userID string, limit int) ([]*models.MealLog, error)
	// ListProcessing returns logs still waiting for analysis, oldest first.
	ListProcessing(ctx context.Context, limit int) ([]*models.MealLog, error)
	// Complete and Fail only finish a log that is still processing and
	// return common.ErrorNotFound otherwise.
	Complete(ctx context.Context, id string, items []models.MealItem, totalCalories float64) (*models.MealLog, error)
	Fail(ctx context.Context, id string, reason string) (*models.MealLog, error)
}
