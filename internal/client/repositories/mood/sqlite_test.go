package mood

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

var day = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func TestInsertGetAndDuplicate(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := &models.MoodEntry{UserID: "u1", Date: day, Score: 8, Emotions: []string{"happy", "grateful"}}
	require.NoError(t, r.Insert(ctx, e))

	got, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Score)
	assert.Equal(t, []string{"happy", "grateful"}, got.Emotions)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)

	probe := &models.MoodEntry{UserID: "u1", Date: day.Add(-5 * time.Hour), Score: 8}
	dup, err := r.FindDuplicate(ctx, probe.DedupKey())
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, e.ID, dup.ID)

	probe.Score = 7
	dup, err = r.FindDuplicate(ctx, probe.DedupKey())
	require.NoError(t, err)
	assert.Nil(t, dup)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListAndStatus(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Insert(ctx, &models.MoodEntry{UserID: "u1", Date: day.AddDate(0, 0, -i), Score: 5 + i}))
	}

	from := day.AddDate(0, 0, -1)
	list, err := r.ListByUser(ctx, "u1", Filter{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].Score)
	assert.Nil(t, list[0].Emotions)

	require.NoError(t, r.MarkSynced(ctx, list[0].ID, "srv-9"))
	require.NoError(t, r.MarkFailed(ctx, list[1].ID))

	synced, err := r.ListByStatus(ctx, models.SyncStatusSynced)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, "srv-9", *synced[0].BackendID)

	failed, err := r.ListByStatus(ctx, models.SyncStatusFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	assert.ErrorIs(t, r.MarkPending(ctx, "missing"), common.ErrorNotFound)
}
