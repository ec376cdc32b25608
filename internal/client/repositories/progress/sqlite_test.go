package progress

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fitiq/fitiq/internal/client/migrations"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

var day = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func entry(typ models.MetricType, qty float64, date time.Time) *models.ProgressEntry {
	return &models.ProgressEntry{
		UserID:    "u1",
		Type:      typ,
		Quantity:  qty,
		Date:      date,
		CreatedAt: date,
		UpdatedAt: date,
	}
}

func TestInsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := entry(models.MetricWeight, 72.4, day)
	e.Notes = "morning"
	require.NoError(t, r.Insert(ctx, e))
	require.NotEmpty(t, e.ID)
	assert.Equal(t, models.SyncStatusPending, e.SyncStatus)

	got, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MetricWeight, got.Type)
	assert.Equal(t, 72.4, got.Quantity)
	assert.Equal(t, "morning", got.Notes)
	assert.True(t, day.Equal(got.Date))
	assert.Nil(t, got.BackendID)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindDuplicate_MatchesSameDayTypeAndValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first := entry(models.MetricWeight, 72.4, day)
	require.NoError(t, r.Insert(ctx, first))

	probe := entry(models.MetricWeight, 72.401, day.Add(10*time.Hour))
	dup, err := r.FindDuplicate(ctx, probe.DedupKey())
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, first.ID, dup.ID)

	other := entry(models.MetricWeight, 72.4, day.AddDate(0, 0, 1))
	dup, err = r.FindDuplicate(ctx, other.DedupKey())
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestListByUser_Filters(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Insert(ctx, entry(models.MetricWeight, 70+float64(i), day.AddDate(0, 0, i))))
	}
	require.NoError(t, r.Insert(ctx, entry(models.MetricSteps, 9000, day)))

	all, err := r.ListByUser(ctx, "u1", Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	weights, err := r.ListByUser(ctx, "u1", Filter{Type: models.MetricWeight})
	require.NoError(t, err)
	require.Len(t, weights, 3)
	assert.Equal(t, 72.0, weights[0].Quantity, "newest first")

	from := day.AddDate(0, 0, 1)
	ranged, err := r.ListByUser(ctx, "u1", Filter{Type: models.MetricWeight, From: &from, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 72.0, ranged[0].Quantity)

	to := day
	early, err := r.ListByUser(ctx, "u1", Filter{To: &to})
	require.NoError(t, err)
	assert.Len(t, early, 2)

	none, err := r.ListByUser(ctx, "u2", Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStatusTransitions(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := entry(models.MetricHeight, 180, day)
	require.NoError(t, r.Insert(ctx, e))

	pending, err := r.ListByStatus(ctx, models.SyncStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, r.MarkFailed(ctx, e.ID))
	got, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, got.SyncStatus)

	require.NoError(t, r.MarkPending(ctx, e.ID))
	require.NoError(t, r.MarkSynced(ctx, e.ID, "srv-1"))
	got, err = r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
	require.NotNil(t, got.BackendID)
	assert.Equal(t, "srv-1", *got.BackendID)

	require.NoError(t, r.MarkPending(ctx, e.ID))
	got, err = r.Get(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BackendID, "backend id survives status changes")

	assert.ErrorIs(t, r.MarkSynced(ctx, "missing", "x"), common.ErrorNotFound)
}
