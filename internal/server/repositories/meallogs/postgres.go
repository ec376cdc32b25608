package meallogs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, client_id, raw_input, meal_type, logged_at, status, items, total_calories, error, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, m *models.MealLog) (*models.MealLog, bool, error) {
	if m.Status == "" {
		m.Status = models.MealLogProcessing
	}
	query := `
		INSERT INTO meal_logs (user_id, client_id, raw_input, meal_type, logged_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, client_id) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, m.UserID, dbx.NullString(m.ClientID), m.RawInput, m.MealType, m.LoggedAt, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) && m.ClientID != nil {
		existing, err := r.one(ctx, `SELECT `+selectColumns+` FROM meal_logs WHERE user_id = $1 AND client_id = $2`, m.UserID, *m.ClientID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return m, true, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.MealLog, error) {
	return r.one(ctx, `SELECT `+selectColumns+` FROM meal_logs WHERE user_id = $1 AND id::text = $2`, userID, id)
}

func (r *PostgresRepository) List(ctx context.Context, userID string, limit int) ([]*models.MealLog, error) {
	query := `SELECT ` + selectColumns + ` FROM meal_logs WHERE user_id = $1 ORDER BY logged_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) ListProcessing(ctx context.Context, limit int) ([]*models.MealLog, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM meal_logs WHERE status = $1 ORDER BY created_at LIMIT $2`,
		models.MealLogProcessing, limit)
}

func (r *PostgresRepository) Complete(ctx context.Context, id string, items []models.MealItem, totalCalories float64) (*models.MealLog, error) {
	if items == nil {
		items = []models.MealItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode meal items: %w", err)
	}
	return r.one(ctx, `UPDATE meal_logs SET status = $1, items = $2, total_calories = $3, error = '', updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING `+selectColumns,
		models.MealLogCompleted, string(encoded), totalCalories, time.Now().UTC(), id, models.MealLogProcessing)
}

func (r *PostgresRepository) Fail(ctx context.Context, id string, reason string) (*models.MealLog, error) {
	return r.one(ctx, `UPDATE meal_logs SET status = $1, error = $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+selectColumns,
		models.MealLogFailed, reason, time.Now().UTC(), id, models.MealLogProcessing)
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.MealLog, error) {
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.MealLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []*models.MealLog
	for rows.Next() {
		var (
			m        models.MealLog
			clientID sql.NullString
			items    []byte
		)
		if err := rows.Scan(&m.ID, &m.UserID, &clientID, &m.RawInput, &m.MealType, &m.LoggedAt, &m.Status,
			&items, &m.TotalCalories, &m.Error, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(items, &m.Items); err != nil {
			return nil, fmt.Errorf("decode meal items: %w", err)
		}
		if len(m.Items) == 0 {
			m.Items = nil
		}
		m.ClientID = dbx.StringPtr(clientID)
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}
