package meallogs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/google/uuid"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, user_id, raw_input, meal_type, logged_at, status, backend_id, items, total_calories, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.MealLog) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.MealLogPending
	}
	items, err := encodeItems(m.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO meal_logs
		(id, user_id, raw_input, meal_type, logged_at, status, backend_id, items, total_calories, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.RawInput, string(m.MealType), dbx.UnixNano(m.LoggedAt), string(m.Status),
		dbx.NullString(m.BackendID), items, m.TotalCalories, dbx.UnixNano(m.CreatedAt), dbx.UnixNano(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal log[%s]: %w", m.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.MealLog, error) {
	return r.one(ctx, `SELECT `+selectColumns+` FROM meal_logs WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByBackendID(ctx context.Context, backendID string) (*models.MealLog, error) {
	return r.one(ctx, `SELECT `+selectColumns+` FROM meal_logs WHERE backend_id = ?`, backendID)
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.MealLog, error) {
	query := `SELECT ` + selectColumns + ` FROM meal_logs WHERE user_id = ? ORDER BY logged_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal logs: %w", err)
	}
	return list, nil
}

// Accept never moves a log out of a terminal status: a push notification
// can complete the log before the submit response is recorded.
func (r *SQLiteRepository) Accept(ctx context.Context, id, backendID string, status models.MealLogStatus) error {
	return r.exec(ctx, id, `UPDATE meal_logs SET
		backend_id = ?,
		status = CASE WHEN status IN (?, ?) THEN status ELSE ? END,
		updated_at = ?
		WHERE id = ?`,
		backendID, string(models.MealLogCompleted), string(models.MealLogFailed), string(status),
		dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.MealLogStatus) error {
	return r.exec(ctx, id, `UPDATE meal_logs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) Complete(ctx context.Context, id string, items []models.MealItem, totalCalories float64) error {
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}
	return r.exec(ctx, id, `UPDATE meal_logs SET status = ?, items = ?, total_calories = ?, updated_at = ? WHERE id = ?`,
		string(models.MealLogCompleted), encoded, totalCalories, dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) exec(ctx context.Context, id string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update meal log[%s]: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) one(ctx context.Context, query string, arg string) (*models.MealLog, error) {
	list, err := r.query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get meal log[%s]: %w", arg, err)
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.MealLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.MealLog
	for rows.Next() {
		var (
			m                          models.MealLog
			mealType, status, items    string
			loggedAt, created, updated int64
			backendID                  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.RawInput, &mealType, &loggedAt, &status,
			&backendID, &items, &m.TotalCalories, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &m.Items); err != nil {
			return nil, fmt.Errorf("decode meal items: %w", err)
		}
		if len(m.Items) == 0 {
			m.Items = nil
		}
		m.MealType = models.MealType(mealType)
		m.Status = models.MealLogStatus(status)
		m.BackendID = dbx.StringPtr(backendID)
		m.LoggedAt = dbx.FromUnixNano(loggedAt)
		m.CreatedAt = dbx.FromUnixNano(created)
		m.UpdatedAt = dbx.FromUnixNano(updated)
		list = append(list, &m)
	}
	return list, rows.Err()
}

func encodeItems(items []models.MealItem) (string, error) {
	if items == nil {
		items = []models.MealItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode meal items: %w", err)
	}
	return string(b), nil
}
