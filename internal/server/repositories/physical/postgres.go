package physical

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

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Physical, error) {
	query := `
		SELECT user_id, biological_sex, biological_sex_source, height_cm, height_source,
			date_of_birth, date_of_birth_source, updated_at
		FROM physical_profiles
		WHERE user_id = $1`

	var (
		p      models.Physical
		sex    sql.NullString
		height sql.NullFloat64
		dob    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &sex, &p.BiologicalSexSource,
		&height, &p.HeightSource, &dob, &p.DateOfBirthSource, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.BiologicalSex = dbx.StringPtr(sex)
	if height.Valid {
		p.HeightCm = &height.Float64
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	return &p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Physical) error {
	query := `
		INSERT INTO physical_profiles (user_id, biological_sex, biological_sex_source, height_cm,
			height_source, date_of_birth, date_of_birth_source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			biological_sex = EXCLUDED.biological_sex,
			biological_sex_source = EXCLUDED.biological_sex_source,
			height_cm = EXCLUDED.height_cm,
			height_source = EXCLUDED.height_source,
			date_of_birth = EXCLUDED.date_of_birth,
			date_of_birth_source = EXCLUDED.date_of_birth_source,
			updated_at = EXCLUDED.updated_at`

	var (
		height sql.NullFloat64
		dob    sql.NullTime
	)
	if p.HeightCm != nil {
		height = sql.NullFloat64{Float64: *p.HeightCm, Valid: true}
	}
	if p.DateOfBirth != nil {
		dob = sql.NullTime{Time: *p.DateOfBirth, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, p.UserID, dbx.NullString(p.BiologicalSex), p.BiologicalSexSource,
		height, p.HeightSource, dob, p.DateOfBirthSource, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
