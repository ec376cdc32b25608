package physical

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	cols := []string{"user_id", "biological_sex", "biological_sex_source", "height_cm", "height_source",
		"date_of_birth", "date_of_birth_source", "updated_at"}
	mock.ExpectQuery(`FROM\s+physical_profiles\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "female", "healthkit", 170.5, "manual", nil, "", ts))

	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got.BiologicalSex)
	assert.Equal(t, "female", *got.BiologicalSex)
	assert.Equal(t, "healthkit", got.BiologicalSexSource)
	require.NotNil(t, got.HeightCm)
	assert.InDelta(t, 170.5, *got.HeightCm, 1e-9)
	assert.Nil(t, got.DateOfBirth)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+physical_profiles`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()
	h := 181.0

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+physical_profiles.*ON\s+CONFLICT\s+\(user_id\)`).
		WithArgs("u1", nil, "", h, "manual", nil, "", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), &models.Physical{
		UserID: "u1", HeightCm: &h, HeightSource: "manual", UpdatedAt: ts,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
