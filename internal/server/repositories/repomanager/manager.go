package repomanager

import (
	"context"
	"database/sql"

	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/server/repositories/meallogs"
	"github.com/fitiq/fitiq/internal/server/repositories/mood"
	"github.com/fitiq/fitiq/internal/server/repositories/physical"
	"github.com/fitiq/fitiq/internal/server/repositories/profiles"
	"github.com/fitiq/fitiq/internal/server/repositories/progress"
	"github.com/fitiq/fitiq/internal/server/repositories/refreshtokens"
	"github.com/fitiq/fitiq/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a pool or a running
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Physical(db dbx.DBTX) physical.Repository
	Progress(db dbx.DBTX) progress.Repository
	Mood(db dbx.DBTX) mood.Repository
	MealLogs(db dbx.DBTX) meallogs.Repository
}
