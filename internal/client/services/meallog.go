package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/meallogs"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

// MealLogService records natural-language meal descriptions. The backend
// analyses them asynchronously and reports the outcome over the
// notification socket.
type MealLogService interface {
	Submit(ctx context.Context, rawInput string, mealType models.MealType, loggedAt time.Time) (*models.MealLog, error)
	// Get returns the cached meal log, refreshed from the backend while it is
	// still being processed and the backend is reachable.
	Get(ctx context.Context, id string) (*models.MealLog, error)
	List(ctx context.Context, limit int) ([]*models.MealLog, error)
	// HandleNotification applies a meal_log.completed or meal_log.failed
	// push message.
	HandleNotification(ctx context.Context, msg contract.PushMessage) error
}

type mealLogService struct {
	client client.Client
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewMealLogService(c client.Client, db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) MealLogService {
	return &mealLogService{client: c, db: db, repos: repos, logger: logger}
}

func (s *mealLogService) Submit(ctx context.Context, rawInput string, mealType models.MealType, loggedAt time.Time) (*models.MealLog, error) {
	var out *models.MealLog
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := currentUser(ctx, s.repos.Metadata(tx))
		if err != nil {
			return err
		}
		at := now()
		if loggedAt.IsZero() {
			loggedAt = at
		}
		m := &models.MealLog{
			UserID:    u.ID,
			RawInput:  rawInput,
			MealType:  mealType,
			LoggedAt:  loggedAt.UTC(),
			Status:    models.MealLogPending,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := m.Validate(); err != nil {
			return err
		}
		if err := s.repos.MealLogs(tx).Insert(ctx, m); err != nil {
			return err
		}
		out = m
		return enqueue(ctx, s.repos, tx, models.EventMealLogged, m.ID, m)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *mealLogService) Get(ctx context.Context, id string) (*models.MealLog, error) {
	m, err := s.repos.MealLogs(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() || m.BackendID == nil {
		return m, nil
	}

	remote, err := s.client.GetMealLog(ctx, *m.BackendID)
	if err != nil {
		s.logger.Debug(ctx, "meal log refresh skipped", "id", id, "error", err)
		return m, nil
	}
	if err := applyMealStatus(ctx, s.repos.MealLogs(s.db), m, remote.Status, remote.Items, remote.TotalCalories); err != nil {
		return nil, err
	}
	return s.repos.MealLogs(s.db).Get(ctx, id)
}

func (s *mealLogService) List(ctx context.Context, limit int) ([]*models.MealLog, error) {
	u, err := currentUser(ctx, s.repos.Metadata(s.db))
	if err != nil {
		return nil, err
	}
	return s.repos.MealLogs(s.db).ListByUser(ctx, u.ID, limit)
}

func (s *mealLogService) HandleNotification(ctx context.Context, msg contract.PushMessage) error {
	var dto contract.MealLogDTO
	if err := json.Unmarshal(msg.Data, &dto); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}

	status := models.MealLogStatus(dto.Status)
	switch msg.Type {
	case contract.PushMealLogCompleted:
		status = models.MealLogCompleted
	case contract.PushMealLogFailed:
		status = models.MealLogFailed
	}
	remote := client.MealLogFromDTO(dto)

	var localID string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.MealLogs(tx)
		m, err := repo.FindByBackendID(ctx, dto.ID)
		if errors.Is(err, common.ErrorNotFound) && dto.ClientID != "" {
			m, err = repo.Get(ctx, dto.ClientID)
		}
		if err != nil {
			return err
		}
		if m.BackendID == nil && dto.ID != "" {
			if err := repo.Accept(ctx, m.ID, dto.ID, m.Status); err != nil {
				return err
			}
		}
		localID = m.ID
		return applyMealStatus(ctx, repo, m, status, remote.Items, remote.TotalCalories)
	})
	if errors.Is(err, common.ErrorNotFound) && localID == "" {
		s.logger.Warn(ctx, "push for unknown meal log", "backend_id", dto.ID)
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "meal log processed", "id", localID, "status", string(status))
	return nil
}

func applyMealStatus(ctx context.Context, repo meallogs.Repository, m *models.MealLog, status models.MealLogStatus, items []models.MealItem, total float64) error {
	switch {
	case status == m.Status && status != models.MealLogCompleted:
		return nil
	case status == models.MealLogCompleted:
		return repo.Complete(ctx, m.ID, items, total)
	case status.Valid():
		return repo.UpdateStatus(ctx, m.ID, status)
	}
	return fmt.Errorf("%w: unknown meal log status %q", common.ErrValidation, status)
}
