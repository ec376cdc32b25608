// Package repomanager provides the PostgreSQL RepositoryManager and runs the
// embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/server/migrations"
	"github.com/fitiq/fitiq/internal/server/repositories/meallogs"
	"github.com/fitiq/fitiq/internal/server/repositories/mood"
	"github.com/fitiq/fitiq/internal/server/repositories/physical"
	"github.com/fitiq/fitiq/internal/server/repositories/profiles"
	"github.com/fitiq/fitiq/internal/server/repositories/progress"
	"github.com/fitiq/fitiq/internal/server/repositories/refreshtokens"
	"github.com/fitiq/fitiq/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Physical(db dbx.DBTX) physical.Repository {
	return physical.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Progress(db dbx.DBTX) progress.Repository {
	return progress.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Mood(db dbx.DBTX) mood.Repository {
	return mood.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) MealLogs(db dbx.DBTX) meallogs.Repository {
	return meallogs.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
