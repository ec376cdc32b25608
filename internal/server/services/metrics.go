package services

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/repositories/repomanager"
)

const maxListLimit = 500

type ProgressService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProgressService(db *sql.DB, m repomanager.RepositoryManager) *ProgressService {
	return &ProgressService{db: db, repomanager: m}
}

// Create stores e. A repeated ClientID returns the stored entry with
// created == false.
func (s *ProgressService) Create(ctx context.Context, e *models.ProgressEntry) (*models.ProgressEntry, bool, error) {
	check := domain.ProgressEntry{UserID: e.UserID, Type: domain.MetricType(e.Type), Quantity: e.Quantity, Date: e.Date}
	if err := check.Validate(); err != nil {
		return nil, false, err
	}
	e.Date = e.Date.UTC()
	return s.repomanager.Progress(s.db).Create(ctx, e)
}

func (s *ProgressService) List(ctx context.Context, userID string, f models.ListFilter) ([]*models.ProgressEntry, error) {
	if f.Type != "" && !domain.MetricType(f.Type).Valid() {
		return nil, fmt.Errorf("%w: type unknown metric %q", common.ErrValidation, f.Type)
	}
	if err := normalizeFilter(&f); err != nil {
		return nil, err
	}
	return s.repomanager.Progress(s.db).List(ctx, userID, f)
}

type MoodService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMoodService(db *sql.DB, m repomanager.RepositoryManager) *MoodService {
	return &MoodService{db: db, repomanager: m}
}

func (s *MoodService) Create(ctx context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error) {
	check := domain.MoodEntry{UserID: e.UserID, Score: e.Score, Emotions: e.Emotions, Date: e.Date}
	if err := check.Validate(); err != nil {
		return nil, false, err
	}
	e.Date = e.Date.UTC()
	return s.repomanager.Mood(s.db).Create(ctx, e)
}

func (s *MoodService) List(ctx context.Context, userID string, f models.ListFilter) ([]*models.MoodEntry, error) {
	f.Type = ""
	if err := normalizeFilter(&f); err != nil {
		return nil, err
	}
	return s.repomanager.Mood(s.db).List(ctx, userID, f)
}

func normalizeFilter(f *models.ListFilter) error {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return fmt.Errorf("%w: from must be before to", common.ErrValidation)
	}
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return nil
}
