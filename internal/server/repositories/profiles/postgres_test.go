package profiles

import (
	"context"
	"database/sql"
	"errors"
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

var columns = []string{"id", "user_id", "name", "bio", "preferred_unit_system", "language_code", "date_of_birth", "created_at", "updated_at"}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 4, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,.*FROM\s+profiles\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p1", "u1", "Alice", "", "metric", "en", dob, ts, ts))

	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	require.NotNil(t, got.DateOfBirth)
	assert.True(t, got.DateOfBirth.Equal(dob))
}

func TestGet_NullDateOfBirth(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectQuery(`FROM\s+profiles`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p1", "u1", "Alice", "", "metric", "", nil, ts, ts))

	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, got.DateOfBirth)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+profiles`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+profiles.*ON\s+CONFLICT\s+\(user_id\)\s+DO\s+UPDATE.*RETURNING\s+id,\s*created_at`).
		WithArgs("u1", "Alice", "bio", "imperial", "en-US", nil, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("p1", ts))

	got, err := repo.Upsert(context.Background(), &models.Profile{
		UserID: "u1", Name: "Alice", Bio: "bio", PreferredUnitSystem: "imperial", LanguageCode: "en-US", UpdatedAt: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT\s+INTO\s+profiles`).WillReturnError(errors.New("down"))

	_, err := repo.Upsert(context.Background(), &models.Profile{UserID: "u1"})
	require.ErrorContains(t, err, "db error")
}
