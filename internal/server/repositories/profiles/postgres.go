package profiles

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, user_id, name, bio, preferred_unit_system, language_code, date_of_birth, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	p := &models.Profile{}
	var dob sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.Bio,
		&p.PreferredUnitSystem, &p.LanguageCode, &dob, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, name, bio, preferred_unit_system, language_code, date_of_birth, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			bio = EXCLUDED.bio,
			preferred_unit_system = EXCLUDED.preferred_unit_system,
			language_code = EXCLUDED.language_code,
			date_of_birth = EXCLUDED.date_of_birth,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	var dob sql.NullTime
	if p.DateOfBirth != nil {
		dob = sql.NullTime{Time: *p.DateOfBirth, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Name, p.Bio, p.PreferredUnitSystem,
		p.LanguageCode, dob, p.UpdatedAt).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
