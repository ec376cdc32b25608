package client

import (
	"context"

	"github.com/fitiq/fitiq/internal/client/models"
)

// Session is the outcome of a successful register or login.
type Session struct {
	Token  models.AuthToken
	UserID string
	Email  string
}

// Client is the port the use cases talk to the backend through.
type Client interface {
	Register(ctx context.Context, email, password, name string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error)
	Logout(ctx context.Context, refreshToken string) error

	// GetProfile returns ErrNotFound while the backend has no profile for
	// the user.
	GetProfile(ctx context.Context) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, m models.UserProfileMetadata) (*models.UserProfile, error)
	UpdatePhysical(ctx context.Context, p models.PhysicalProfile) (*models.PhysicalProfile, error)

	CreateProgress(ctx context.Context, e *models.ProgressEntry) (string, error)
	CreateMood(ctx context.Context, e *models.MoodEntry) (string, error)
	SubmitMealLog(ctx context.Context, m *models.MealLog) (string, models.MealLogStatus, error)
	GetMealLog(ctx context.Context, backendID string) (*models.MealLog, error)

	Ping(ctx context.Context) error

	SetToken(tok models.AuthToken)
	Token() models.AuthToken
	// OnTokenRefresh registers fn to be called with every token obtained by
	// a transparent refresh.
	OnTokenRefresh(fn func(models.AuthToken))
}
