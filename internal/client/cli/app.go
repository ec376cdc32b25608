package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/config"
	"github.com/fitiq/fitiq/internal/client/healthkit"
	"github.com/fitiq/fitiq/internal/client/notify"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/client/repositories/tokens"
	"github.com/fitiq/fitiq/internal/client/services"
	"github.com/fitiq/fitiq/internal/filex"
	"github.com/fitiq/fitiq/internal/logging"
)

// App holds the services one command invocation works with.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *client.HTTPClient
	health *healthkit.ExportStore

	auth     services.AuthService
	profile  services.ProfileService
	progress services.ProgressService
	mood     services.MoodService
	meals    services.MealLogService
	sync     services.SyncService

	in  *bufio.Reader
	out io.Writer
}

// NewApp opens the local cache under cfg.DataDir and restores the stored
// session, if any.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	secret, err := cfg.ResolveDeviceSecret()
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}

	repos := repomanager.NewSQLiteRepositoryManager()
	api := client.NewHTTPClient(cfg.ServerURL, client.Options{
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
	store := tokens.NewStore(repos.Metadata(db), secret)
	health := healthkit.NewExportStore(cfg.HealthExportFile(), logger)

	profile := services.NewProfileService(api, db, repos, health, logger)
	a := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		api:      api,
		health:   health,
		auth:     services.NewAuthService(api, db, repos, store, logger),
		profile:  profile,
		progress: services.NewProgressService(db, repos, logger),
		mood:     services.NewMoodService(db, repos, logger),
		meals:    services.NewMealLogService(api, db, repos, logger),
		sync: services.NewSyncService(api, db, repos, profile, logger, services.SyncOptions{
			BatchSize:   cfg.BatchSize,
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: cfg.BaseBackoff,
		}),
		in:  bufio.NewReader(in),
		out: out,
	}

	if _, err := a.auth.Restore(ctx); err != nil && !errors.Is(err, services.ErrNotLoggedIn) {
		_ = db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return a, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// newDaemon assembles the background sync daemon.
func (a *App) newDaemon() (*services.Daemon, error) {
	var d *services.Daemon
	listener, err := notify.NewListener(a.config.ServerURL,
		func() string { return a.api.Token().AccessToken },
		a.logger,
		notify.Options{OnConnect: func(context.Context) { d.Trigger() }},
	)
	if err != nil {
		return nil, err
	}
	d = services.NewDaemon(a.sync, a.profile, a.meals, a.api, a.health, listener, a.logger, services.DaemonOptions{
		Schedule:            a.config.SyncSchedule,
		OnlineCheckInterval: a.config.OnlineCheckInterval,
		MetricsAddr:         a.config.MetricsAddr,
	})
	return d, nil
}
