package mood

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

const selectColumns = `id, user_id, client_id, score, emotions, date, notes, created_at`

func (r *PostgresRepository) Create(ctx context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error) {
	emotions := e.Emotions
	if emotions == nil {
		emotions = []string{}
	}
	encoded, err := json.Marshal(emotions)
	if err != nil {
		return nil, false, fmt.Errorf("encode emotions: %w", err)
	}

	query := `
		INSERT INTO mood_entries (user_id, client_id, score, emotions, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, client_id) DO NOTHING
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query, e.UserID, dbx.NullString(e.ClientID), e.Score, string(encoded), e.Date, e.Notes).
		Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) && e.ClientID != nil {
		existing, err := r.FindByClientID(ctx, e.UserID, *e.ClientID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return e, true, nil
}

func (r *PostgresRepository) FindByClientID(ctx context.Context, userID, clientID string) (*models.MoodEntry, error) {
	list, err := r.query(ctx, `SELECT `+selectColumns+` FROM mood_entries WHERE user_id = $1 AND client_id = $2`, userID, clientID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, f models.ListFilter) ([]*models.MoodEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM mood_entries WHERE user_id = $1`
	args := []any{userID}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(` AND date < $%d`, len(args))
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.MoodEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []*models.MoodEntry
	for rows.Next() {
		var (
			e        models.MoodEntry
			clientID sql.NullString
			emotions []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &clientID, &e.Score, &emotions, &e.Date, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(emotions, &e.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions: %w", err)
		}
		if len(e.Emotions) == 0 {
			e.Emotions = nil
		}
		e.ClientID = dbx.StringPtr(clientID)
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}
