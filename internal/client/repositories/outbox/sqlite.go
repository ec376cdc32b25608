package outbox

import (
	"context"
	"database/sql"
	"errors"
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

const selectColumns = `id, event_type, entity_id, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at`

func (r *SQLiteRepository) Enqueue(ctx context.Context, ev *models.OutboxEvent) error {
	now := time.Now().UTC()
	if ev.NextAttemptAt.IsZero() {
		ev.NextAttemptAt = now
	}

	var existing string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM outbox
		WHERE event_type = ? AND entity_id = ? AND status = ?
		ORDER BY created_at ASC
		LIMIT 1`, string(ev.EventType), ev.EntityID, string(models.SyncStatusPending)).Scan(&existing)

	switch {
	case err == nil:
		_, err = r.db.ExecContext(ctx, `UPDATE outbox
			SET payload = ?, next_attempt_at = ?, updated_at = ?
			WHERE id = ?`, ev.Payload, dbx.UnixNano(ev.NextAttemptAt), dbx.UnixNano(now), existing)
		if err != nil {
			return fmt.Errorf("failed to coalesce outbox event[%s]: %w", existing, err)
		}
		ev.ID = existing
		ev.Status = models.SyncStatusPending
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to look up pending outbox event: %w", err)
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.Status = models.SyncStatusPending
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `INSERT INTO outbox
		(id, event_type, entity_id, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.EventType), ev.EntityID, ev.Payload, string(ev.Status), ev.Attempts,
		dbx.UnixNano(ev.NextAttemptAt), ev.LastError, dbx.UnixNano(ev.CreatedAt), dbx.UnixNano(ev.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox event[%s]: %w", ev.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEvent, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM outbox
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, string(models.SyncStatusPending), dbx.UnixNano(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due outbox events: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.OutboxEvent, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM outbox WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox event[%s]: %w", id, err)
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return r.update(ctx, id, `UPDATE outbox SET status = ?, last_error = '', updated_at = ? WHERE id = ?`,
		string(models.SyncStatusSynced), dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) MarkRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastErr string) error {
	return r.update(ctx, id, `UPDATE outbox
		SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(models.SyncStatusPending), attempts, dbx.UnixNano(nextAt), lastErr, dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return r.update(ctx, id, `UPDATE outbox
		SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(models.SyncStatusFailed), attempts, lastErr, dbx.UnixNano(time.Now()), id)
}

func (r *SQLiteRepository) RequeueFailed(ctx context.Context, now time.Time) ([]*models.OutboxEvent, error) {
	failed, err := r.query(ctx, `SELECT `+selectColumns+` FROM outbox WHERE status = ? ORDER BY created_at ASC`,
		string(models.SyncStatusFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to list failed outbox events: %w", err)
	}
	if len(failed) == 0 {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx, `UPDATE outbox
		SET status = ?, attempts = 0, next_attempt_at = ?, updated_at = ?
		WHERE status = ?`,
		string(models.SyncStatusPending), dbx.UnixNano(now), dbx.UnixNano(now), string(models.SyncStatusFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to requeue outbox events: %w", err)
	}
	for _, ev := range failed {
		ev.Status = models.SyncStatusPending
		ev.Attempts = 0
		ev.NextAttemptAt = now
	}
	return failed, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (models.OutboxStats, error) {
	var stats models.OutboxStats
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to count outbox events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("failed to scan outbox stats: %w", err)
		}
		switch models.SyncStatus(status) {
		case models.SyncStatusPending:
			stats.Pending = n
		case models.SyncStatusSynced:
			stats.Synced = n
		case models.SyncStatusFailed:
			stats.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate outbox stats: %w", err)
	}
	return stats, nil
}

func (r *SQLiteRepository) update(ctx context.Context, id string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox event[%s]: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.OutboxEvent
	for rows.Next() {
		var (
			ev                     models.OutboxEvent
			eventType, status      string
			next, created, updated int64
		)
		if err := rows.Scan(&ev.ID, &eventType, &ev.EntityID, &ev.Payload, &status, &ev.Attempts,
			&next, &ev.LastError, &created, &updated); err != nil {
			return nil, err
		}
		ev.EventType = models.EventType(eventType)
		ev.Status = models.SyncStatus(status)
		ev.NextAttemptAt = dbx.FromUnixNano(next)
		ev.CreatedAt = dbx.FromUnixNano(created)
		ev.UpdatedAt = dbx.FromUnixNano(updated)
		list = append(list, &ev)
	}
	return list, rows.Err()
}
