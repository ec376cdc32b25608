package meallogs

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

func TestMealLogLifecycle(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	m := &models.MealLog{UserID: "u1", RawInput: "chicken salad", MealType: models.MealLunch, LoggedAt: at, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, r.Insert(ctx, m))
	assert.Equal(t, models.MealLogPending, m.Status)

	_, err := r.FindByBackendID(ctx, "srv-1")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.Accept(ctx, m.ID, "srv-1", models.MealLogProcessing))
	got, err := r.FindByBackendID(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, models.MealLogProcessing, got.Status)
	assert.Nil(t, got.Items)

	items := []models.MealItem{{Name: "chicken", Quantity: "150g", Calories: 250}, {Name: "lettuce", Calories: 15}}
	require.NoError(t, r.Complete(ctx, m.ID, items, 265))

	got, err = r.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MealLogCompleted, got.Status)
	assert.Equal(t, items, got.Items)
	assert.Equal(t, 265.0, got.TotalCalories)
	assert.True(t, at.Equal(got.LoggedAt))

	list, err := r.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, r.UpdateStatus(ctx, "missing", models.MealLogFailed), common.ErrorNotFound)
}

func TestAccept_KeepsTerminalStatus(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	done := &models.MealLog{UserID: "u1", RawInput: "oatmeal", MealType: models.MealBreakfast, LoggedAt: at, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, r.Insert(ctx, done))
	require.NoError(t, r.Complete(ctx, done.ID, []models.MealItem{{Name: "oatmeal", Calories: 150}}, 150))

	failed := &models.MealLog{UserID: "u1", RawInput: "???", MealType: models.MealSnack, LoggedAt: at, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, r.Insert(ctx, failed))
	require.NoError(t, r.UpdateStatus(ctx, failed.ID, models.MealLogFailed))

	require.NoError(t, r.Accept(ctx, done.ID, "srv-1", models.MealLogProcessing))
	require.NoError(t, r.Accept(ctx, failed.ID, "srv-2", models.MealLogProcessing))

	got, err := r.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MealLogCompleted, got.Status)
	assert.Equal(t, 150.0, got.TotalCalories)
	require.NotNil(t, got.BackendID)
	assert.Equal(t, "srv-1", *got.BackendID)

	got, err = r.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MealLogFailed, got.Status)
	assert.Equal(t, "srv-2", *got.BackendID)

	assert.ErrorIs(t, r.Accept(ctx, "missing", "srv-3", models.MealLogProcessing), common.ErrorNotFound)
}
