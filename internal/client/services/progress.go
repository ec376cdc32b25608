package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/progress"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

type ProgressService interface {
	// Log stores e for the current user and queues it for delivery. When an
	// entry with the same day, type and value exists, that entry is returned
	// and created is false.
	Log(ctx context.Context, e models.ProgressEntry) (entry *models.ProgressEntry, created bool, err error)
	List(ctx context.Context, f progress.Filter) ([]*models.ProgressEntry, error)
}

type progressService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewProgressService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) ProgressService {
	return &progressService{db: db, repos: repos, logger: logger}
}

func (s *progressService) Log(ctx context.Context, e models.ProgressEntry) (*models.ProgressEntry, bool, error) {
	var (
		out     *models.ProgressEntry
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

		repo := s.repos.Progress(tx)
		dup, err := repo.FindDuplicate(ctx, e.DedupKey())
		if err != nil {
			return err
		}
		if dup != nil {
			s.logger.Debug(ctx, "progress entry already logged", "id", dup.ID, "type", string(e.Type))
			out = dup
			return nil
		}

		e.CreatedAt, e.UpdatedAt = at, at
		if err := repo.Insert(ctx, &e); err != nil {
			return err
		}
		if err := enqueue(ctx, s.repos, tx, models.EventProgressLogged, e.ID, e); err != nil {
			return err
		}

		if e.Type == models.MetricHeight {
			h := e.Quantity
			_, _, err := applyPhysical(ctx, s.repos, tx, u.ID, models.PhysicalPatch{HeightCm: &h}, models.SourceManual)
			switch {
			case errors.Is(err, common.ErrProfileNotInitialized):
				s.logger.Debug(ctx, "no profile to update with logged height")
			case err != nil:
				return err
			}
		}

		out, created = &e, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *progressService) List(ctx context.Context, f progress.Filter) ([]*models.ProgressEntry, error) {
	u, err := currentUser(ctx, s.repos.Metadata(s.db))
	if err != nil {
		return nil, err
	}
	return s.repos.Progress(s.db).ListByUser(ctx, u.ID, f)
}
