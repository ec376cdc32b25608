package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

const selectColumns = `local_id, user_id, remote_id, name, bio, unit_system, language_code,
	date_of_birth, physical, email, username, initial_healthkit_sync, last_synced_at,
	pending_fields, metadata_created_at, metadata_updated_at, updated_at`

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM profiles
		WHERE user_id = ?
		ORDER BY updated_at DESC, local_id DESC
		LIMIT 1`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile[%s]: %w", userID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.UserProfile) error {
	if p.LocalID == "" {
		var localID string
		err := r.db.QueryRowContext(ctx, `SELECT local_id FROM profiles
			WHERE user_id = ?
			ORDER BY updated_at DESC, local_id DESC
			LIMIT 1`, p.Metadata.UserID).Scan(&localID)
		if errors.Is(err, sql.ErrNoRows) {
			return r.Insert(ctx, p)
		}
		if err != nil {
			return fmt.Errorf("failed to find profile[%s]: %w", p.Metadata.UserID, err)
		}
		p.LocalID = localID
	}

	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET
		user_id = ?, remote_id = ?, name = ?, bio = ?, unit_system = ?, language_code = ?,
		date_of_birth = ?, physical = ?, email = ?, username = ?, initial_healthkit_sync = ?,
		last_synced_at = ?, pending_fields = ?, metadata_created_at = ?, metadata_updated_at = ?,
		updated_at = ?
		WHERE local_id = ?`, append(args, p.LocalID)...)
	if err != nil {
		return fmt.Errorf("failed to update profile[%s]: %w", p.LocalID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.Insert(ctx, p)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.UserProfile) error {
	if p.LocalID == "" {
		p.LocalID = uuid.NewString()
	}
	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO profiles (
		user_id, remote_id, name, bio, unit_system, language_code,
		date_of_birth, physical, email, username, initial_healthkit_sync,
		last_synced_at, pending_fields, metadata_created_at, metadata_updated_at,
		updated_at, local_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, append(args, p.LocalID)...)
	if err != nil {
		return fmt.Errorf("failed to insert profile[%s]: %w", p.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) CleanupDuplicates(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE local_id NOT IN (
		SELECT local_id FROM (
			SELECT local_id, ROW_NUMBER() OVER (
				PARTITION BY user_id ORDER BY updated_at DESC, local_id DESC
			) AS rn
			FROM profiles
		) WHERE rn = 1
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup duplicate profiles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed profiles: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles[%s]: %w", userID, err)
	}
	return n, nil
}

// profileArgs returns the column values in UPDATE order, without local_id.
func profileArgs(p *models.UserProfile) ([]any, error) {
	var physical sql.NullString
	if p.Physical != nil {
		b, err := json.Marshal(p.Physical)
		if err != nil {
			return nil, fmt.Errorf("failed to encode physical profile: %w", err)
		}
		physical = sql.NullString{String: string(b), Valid: true}
	}

	pending := p.PendingFields
	if pending == nil {
		pending = []string{}
	}
	pendingJSON, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending fields: %w", err)
	}

	m := p.Metadata
	return []any{
		m.UserID, m.ID, m.Name, m.Bio, string(m.PreferredUnitSystem), m.LanguageCode,
		dbx.NullUnixNano(m.DateOfBirth), physical, p.Email, p.Username, p.HasPerformedInitialHealthKitSync,
		dbx.NullUnixNano(p.LastSuccessfulSyncAt), string(pendingJSON),
		dbx.UnixNano(m.CreatedAt), dbx.UnixNano(m.UpdatedAt), dbx.UnixNano(p.UpdatedAt),
	}, nil
}

func scanProfile(row *sql.Row) (*models.UserProfile, error) {
	var (
		p                               models.UserProfile
		unit                            string
		dob, lastSynced                 sql.NullInt64
		physical                        sql.NullString
		pending                         string
		metaCreated, metaUpdated, updAt int64
	)
	err := row.Scan(&p.LocalID, &p.Metadata.UserID, &p.Metadata.ID, &p.Metadata.Name, &p.Metadata.Bio,
		&unit, &p.Metadata.LanguageCode, &dob, &physical, &p.Email, &p.Username,
		&p.HasPerformedInitialHealthKitSync, &lastSynced, &pending, &metaCreated, &metaUpdated, &updAt)
	if err != nil {
		return nil, err
	}

	p.Metadata.PreferredUnitSystem = models.UnitSystem(unit)
	p.Metadata.DateOfBirth = dbx.TimePtr(dob)
	p.Metadata.CreatedAt = dbx.FromUnixNano(metaCreated)
	p.Metadata.UpdatedAt = dbx.FromUnixNano(metaUpdated)
	p.LastSuccessfulSyncAt = dbx.TimePtr(lastSynced)
	p.UpdatedAt = dbx.FromUnixNano(updAt)

	if physical.Valid {
		p.Physical = &models.PhysicalProfile{}
		if err := json.Unmarshal([]byte(physical.String), p.Physical); err != nil {
			return nil, fmt.Errorf("decode physical profile: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(pending), &p.PendingFields); err != nil {
		return nil, fmt.Errorf("decode pending fields: %w", err)
	}
	if len(p.PendingFields) == 0 {
		p.PendingFields = nil
	}
	return &p, nil
}
