package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/notify"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Pinger reports whether the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthWatcher calls onChange whenever new health data becomes available
// and blocks until ctx is done.
type HealthWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// NotificationSource delivers backend push messages to registered handlers
// and blocks until ctx is done.
type NotificationSource interface {
	Handle(typ string, h notify.Handler)
	Run(ctx context.Context) error
}

type DaemonOptions struct {
	// Schedule is a cron spec for periodic syncs, e.g. "@every 5m".
	Schedule            string
	OnlineCheckInterval time.Duration
	PingTimeout         time.Duration
	// MetricsAddr enables a /metrics listener when not empty.
	MetricsAddr string
}

// Daemon keeps the cache in sync in the background. A sync runs on start,
// on schedule, when the backend comes back online and after new health
// data is imported. Requests that arrive while a sync is running coalesce
// into one follow-up run.
type Daemon struct {
	sync    SyncService
	profile ProfileService
	meals   MealLogService
	pinger  Pinger
	health  HealthWatcher
	notify  NotificationSource
	logger  logging.Logger
	opts    DaemonOptions

	trigger chan struct{}

	mu   sync.Mutex
	mode Mode
}

func NewDaemon(syncer SyncService, profile ProfileService, meals MealLogService, pinger Pinger,
	health HealthWatcher, notify NotificationSource, logger logging.Logger, opts DaemonOptions) *Daemon {
	if opts.OnlineCheckInterval <= 0 {
		opts.OnlineCheckInterval = 30 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 3 * time.Second
	}
	return &Daemon{
		sync:    syncer,
		profile: profile,
		meals:   meals,
		pinger:  pinger,
		health:  health,
		notify:  notify,
		logger:  logger,
		opts:    opts,
		trigger: make(chan struct{}, 1),
		mode:    ModeOffline,
	}
}

func (d *Daemon) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// setMode reports whether the daemon just came online.
func (d *Daemon) setMode(ctx context.Context, mode Mode) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == mode {
		return false
	}
	d.mode = mode
	d.logger.Info(ctx, "switched mode", "mode", string(mode))
	return mode == ModeOnline
}

// Trigger requests a sync without blocking.
func (d *Daemon) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	var sched *cron.Cron
	if d.opts.Schedule != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(d.opts.Schedule, d.Trigger); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.syncLoop(ctx) })
	g.Go(func() error { return d.watchOnline(ctx) })

	if sched != nil {
		sched.Start()
		g.Go(func() error {
			<-ctx.Done()
			<-sched.Stop().Done()
			return nil
		})
	}

	if d.health != nil {
		g.Go(func() error {
			if _, err := d.profile.PerformInitialHealthKitSync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn(ctx, "initial health import failed", "error", err)
			}
			if err := d.health.Watch(ctx, func() { d.importHealth(ctx) }); err != nil {
				d.logger.Warn(ctx, "health export watch disabled", "error", err)
			}
			return nil
		})
	}

	if d.notify != nil {
		d.notify.Handle(contract.PushMealLogCompleted, d.meals.HandleNotification)
		d.notify.Handle(contract.PushMealLogFailed, d.meals.HandleNotification)
		g.Go(func() error { return d.notify.Run(ctx) })
	}

	if d.opts.MetricsAddr != "" {
		g.Go(func() error { return d.serveMetrics(ctx) })
	}

	d.Trigger()
	d.logger.Info(ctx, "daemon started", "schedule", d.opts.Schedule)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) syncLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.trigger:
			res, err := d.sync.Sync(ctx)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, ErrNotLoggedIn), errors.Is(err, client.ErrUnauthorized):
				d.logger.Warn(ctx, "sync skipped, login required", "error", err)
			case client.IsTransient(err):
				d.setMode(ctx, ModeOffline)
				d.logger.Warn(ctx, "sync postponed, backend unavailable", "error", err)
			default:
				d.logger.Error(ctx, "sync failed", "error", err, "delivered", res.Delivered)
			}
		}
	}
}

func (d *Daemon) watchOnline(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.OnlineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, d.opts.PingTimeout)
			err := d.pinger.Ping(pctx)
			cancel()

			if err != nil {
				d.setMode(ctx, ModeOffline)
				continue
			}
			if d.setMode(ctx, ModeOnline) {
				d.Trigger()
			}
		}
	}
}

func (d *Daemon) importHealth(ctx context.Context) {
	if _, err := d.profile.SyncBiologicalSexFromHealthKit(ctx); err != nil {
		d.logger.Warn(ctx, "biological sex import failed", "error", err)
	}
	if _, err := d.profile.SyncHeightFromHealthKit(ctx); err != nil {
		d.logger.Warn(ctx, "height import failed", "error", err)
	}
	d.Trigger()
}

func (d *Daemon) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: d.opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info(ctx, "metrics listening", "addr", d.opts.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
