package services

import (
	"context"
	"database/sql"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/mood"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

type MoodService interface {
	// Log behaves like ProgressService.Log; entries are duplicates when they
	// share the day and the score.
	Log(ctx context.Context, e models.MoodEntry) (entry *models.MoodEntry, created bool, err error)
	List(ctx context.Context, f mood.Filter) ([]*models.MoodEntry, error)
}

type moodService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewMoodService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) MoodService {
	return &moodService{db: db, repos: repos, logger: logger}
}

func (s *moodService) Log(ctx context.Context, e models.MoodEntry) (*models.MoodEntry, bool, error) {
	var (
		out     *models.MoodEntry
		created bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := currentUser(ctx, s.repos.Metadata(tx))
		if err != nil {
			return err
		}

		at := now()
		e.ID = ""
		e.UserID = u.ID
		e.SyncStatus = models.SyncStatusPending
		e.BackendID = nil
		if e.Date.IsZero() {
			e.Date = at
		}
		e.Date = e.Date.UTC()
		if err := e.Validate(); err != nil {
			return err
		}

		repo := s.repos.Mood(tx)
		dup, err := repo.FindDuplicate(ctx, e.DedupKey())
		if err != nil {
			return err
		}
		if dup != nil {
			out = dup
			return nil
		}

		e.CreatedAt, e.UpdatedAt = at, at
		if err := repo.Insert(ctx, &e); err != nil {
			return err
		}
		if err := enqueue(ctx, s.repos, tx, models.EventMoodLogged, e.ID, e); err != nil {
			return err
		}
		out, created = &e, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *moodService) List(ctx context.Context, f mood.Filter) ([]*models.MoodEntry, error) {
	u, err := currentUser(ctx, s.repos.Metadata(s.db))
	if err != nil {
		return nil, err
	}
	return s.repos.Mood(s.db).ListByUser(ctx, u.ID, f)
}
