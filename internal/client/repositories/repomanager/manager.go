// Package repomanager vends the client SQLite repositories bound to either
// the cache connection or a running transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/fitiq/fitiq/internal/client/migrations"
	"github.com/fitiq/fitiq/internal/client/repositories/meallogs"
	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
	"github.com/fitiq/fitiq/internal/client/repositories/mood"
	"github.com/fitiq/fitiq/internal/client/repositories/outbox"
	"github.com/fitiq/fitiq/internal/client/repositories/profiles"
	"github.com/fitiq/fitiq/internal/client/repositories/progress"
	"github.com/fitiq/fitiq/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Metadata(db dbx.DBTX) metadata.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Progress(db dbx.DBTX) progress.Repository
	Mood(db dbx.DBTX) mood.Repository
	MealLogs(db dbx.DBTX) meallogs.Repository
	Outbox(db dbx.DBTX) outbox.Repository
}

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

var _ RepositoryManager = (*SQLiteRepositoryManager)(nil)

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

// migrateUp is a seam for tests.
var migrateUp = migrations.Up

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Progress(db dbx.DBTX) progress.Repository {
	return progress.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Mood(db dbx.DBTX) mood.Repository {
	return mood.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) MealLogs(db dbx.DBTX) meallogs.Repository {
	return meallogs.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Outbox(db dbx.DBTX) outbox.Repository {
	return outbox.NewSQLiteRepository(db)
}
