package progress

import (
	"context"
	"database/sql"
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

const selectColumns = `id, user_id, type, quantity, date, notes, sync_status, backend_id, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.ProgressEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SyncStatus == "" {
		e.SyncStatus = models.SyncStatusPending
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO progress_entries
		(id, user_id, type, quantity, date, notes, dedup_key, sync_status, backend_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Type), e.Quantity, dbx.UnixNano(e.Date), e.Notes,
		e.DedupKey().String(), string(e.SyncStatus), dbx.NullString(e.BackendID),
		dbx.UnixNano(e.CreatedAt), dbx.UnixNano(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert progress entry[%s]: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.ProgressEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM progress_entries WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress entry[%s]: %w", id, err)
	}
	list, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress entry[%s]: %w", id, err)
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *SQLiteRepository) FindDuplicate(ctx context.Context, key models.DedupKey) (*models.ProgressEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM progress_entries
		WHERE dedup_key = ?
		ORDER BY created_at ASC
		LIMIT 1`, key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate progress entry: %w", err)
	}
	list, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate progress entry: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, f Filter) ([]*models.ProgressEntry, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, dbx.UnixNano(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, dbx.UnixNano(*f.To))
	}

	query := `SELECT ` + selectColumns + ` FROM progress_entries WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	list, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.SyncStatus) ([]*models.ProgressEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM progress_entries
		WHERE sync_status = ?
		ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries by status: %w", err)
	}
	list, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries by status: %w", err)
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

// setStatus keeps an existing backend_id when backendID is nil.
func (r *SQLiteRepository) setStatus(ctx context.Context, id string, status models.SyncStatus, backendID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE progress_entries
		SET sync_status = ?, backend_id = COALESCE(?, backend_id), updated_at = ?
		WHERE id = ?`, string(status), dbx.NullString(backendID), dbx.UnixNano(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark progress entry[%s] %s: %w", id, status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanAll(rows *sql.Rows) ([]*models.ProgressEntry, error) {
	defer rows.Close()

	var list []*models.ProgressEntry
	for rows.Next() {
		var (
			e                      models.ProgressEntry
			typ, status            string
			date, created, updated int64
			backendID              sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Quantity, &date, &e.Notes,
			&status, &backendID, &created, &updated); err != nil {
			return nil, err
		}
		e.Type = models.MetricType(typ)
		e.SyncStatus = models.SyncStatus(status)
		e.BackendID = dbx.StringPtr(backendID)
		e.Date = dbx.FromUnixNano(date)
		e.CreatedAt = dbx.FromUnixNano(created)
		e.UpdatedAt = dbx.FromUnixNano(updated)
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
