// Package server wires the reference backend together: PostgreSQL
// repositories, services, the meal analysis workers, the push hub and the
// HTTP server, with graceful shutdown on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server/config"
	"github.com/fitiq/fitiq/internal/server/httpapi"
	"github.com/fitiq/fitiq/internal/server/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/server/services"
	"golang.org/x/sync/errgroup"
)

const (
	tokenPruneInterval = time.Hour
	readHeaderTimeout  = 10 * time.Second
)

// openDB is replaced in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	users    *services.UserService
	mealLogs *services.MealLogService
	hub      *httpapi.Hub
	handler  *httpapi.Handler

	ready chan struct{}
	addr  net.Addr
}

// NewApp connects to the database and applies pending migrations.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return newApp(cfg, logger, db, rm), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	metrics := httpapi.NewMetrics()
	hub := httpapi.NewHub(logger.With("component", "hub"), metrics)
	users := services.NewUserService(db, rm, cfg)
	mealLogs := services.NewMealLogService(db, rm, cfg, services.NewKeywordAnalyzer(), hub, logger.With("component", "meal_logs"))

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		users:    users,
		mealLogs: mealLogs,
		hub:      hub,
		handler: &httpapi.Handler{
			Users:    users,
			Profiles: services.NewProfileService(db, rm),
			Progress: services.NewProgressService(db, rm),
			Mood:     services.NewMoodService(db, rm),
			MealLogs: mealLogs,
			Hub:      hub,
			Metrics:  metrics,
			Logger:   logger,
		},
		ready: make(chan struct{}),
	}
}

// Ready is closed once the HTTP listener is bound.
func (app *App) Ready() <-chan struct{} { return app.ready }

// Addr is valid after Ready is closed.
func (app *App) Addr() net.Addr { return app.addr }

// Run serves until ctx is done or a signal arrives, then shuts the HTTP
// server down within the configured timeout.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddr, err)
	}
	app.addr = ln.Addr()
	close(app.ready)

	srv := &http.Server{
		Handler:           app.handler.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.hub.Run(gctx) })
	g.Go(func() error { return app.mealLogs.Run(gctx) })
	g.Go(func() error {
		app.pruneTokens(gctx)
		return nil
	})
	g.Go(func() error {
		app.logger.Info(gctx, "http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(gctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (app *App) pruneTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.users.PruneExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "failed to prune refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "pruned expired refresh tokens", "count", n)
			}
		}
	}
}

func (app *App) Close() error {
	return app.db.Close()
}
