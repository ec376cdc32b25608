package mood

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
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

const selectColumns = `id, user_id, date, score, emotions, notes, sync_status, backend_id, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.MoodEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SyncStatus == "" {
		e.SyncStatus = models.SyncStatusPending
	}
	emotions := e.Emotions
	if emotions == nil {
		emotions = []string{}
	}
	emotionsJSON, err := json.Marshal(emotions)
	if err != nil {
		return fmt.Errorf("failed to encode emotions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO mood_entries
		(id, user_id, date, score, emotions, notes, dedup_key, sync_status, backend_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, dbx.UnixNano(e.Date), e.Score, string(emotionsJSON), e.Notes,
		e.DedupKey().String(), string(e.SyncStatus), dbx.NullString(e.BackendID),
		dbx.UnixNano(e.CreatedAt), dbx.UnixNano(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert mood entry[%s]: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.MoodEntry, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM mood_entries WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood entry[%s]: %w", id, err)
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *SQLiteRepository) FindDuplicate(ctx context.Context, key models.DedupKey) (*models.MoodEntry, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM mood_entries
		WHERE dedup_key = ?
		ORDER BY created_at ASC
		LIMIT 1`, key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate mood entry: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, f Filter) ([]*models.MoodEntry, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, dbx.UnixNano(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, dbx.UnixNano(*f.To))
	}
	query := `SELECT ` + selectColumns + ` FROM mood_entries WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.MoodEntry, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM mood_entries
		WHERE sync_status = ?
		ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries by status: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, backendID string) error {
	return r.setStatus(ctx, id, models.SyncStatusSynced, &backendID)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.SyncStatusFailed, nil)
}

func (r *SQLiteRepository) MarkPending(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.SyncStatusPending, nil)
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id string, status models.SyncStatus, backendID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE mood_entries
		SET sync_status = ?, backend_id = COALESCE(?, backend_id), updated_at = ?
		WHERE id = ?`, string(status), dbx.NullString(backendID), dbx.UnixNano(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark mood entry[%s] %s: %w", id, status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.MoodEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.MoodEntry
	for rows.Next() {
		var (
			e                      models.MoodEntry
			emotions, status       string
			date, created, updated int64
			backendID              sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &date, &e.Score, &emotions, &e.Notes,
			&status, &backendID, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(emotions), &e.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions: %w", err)
		}
		if len(e.Emotions) == 0 {
			e.Emotions = nil
		}
		e.SyncStatus = models.SyncStatus(status)
		e.BackendID = dbx.StringPtr(backendID)
		e.Date = dbx.FromUnixNano(date)
		e.CreatedAt = dbx.FromUnixNano(created)
		e.UpdatedAt = dbx.FromUnixNano(updated)
		list = append(list, &e)
	}
	return list, rows.Err()
}
