package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

// SyncOptions tunes outbox delivery. Zero values select the defaults.
type SyncOptions struct {
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
}

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
	defaultBaseBackoff = 30 * time.Second
	maxBackoff         = time.Hour
)

// SyncResult summarises one delivery pass.
type SyncResult struct {
	Delivered int
	Retried   int
	Failed    int
}

// SyncReport is the state shown by `sync status`.
type SyncReport struct {
	Outbox     models.OutboxStats
	LastSyncAt *time.Time
}

// SyncService delivers queued local mutations to the backend.
//
// Delivery outcome per event:
//   - success: the event and its entity are marked synced;
//   - transient failure (backend unreachable, 5xx, 429): retried with
//     exponential backoff, failed after MaxAttempts;
//   - permanent rejection (400, 409, 405): failed immediately together with
//     its entity;
//   - unauthorized: the batch stops and the event stays pending.
type SyncService interface {
	RunOnce(ctx context.Context) (SyncResult, error)
	// Sync delivers the outbox, refreshes the profile and records the sync
	// time.
	Sync(ctx context.Context) (SyncResult, error)
	// RetryFailed puts failed events back in the queue and returns how many.
	RetryFailed(ctx context.Context) (int, error)
	Status(ctx context.Context) (*SyncReport, error)
}

type syncService struct {
	client   client.Client
	db       *sql.DB
	repos    repomanager.RepositoryManager
	profiles ProfileService
	logger   logging.Logger
	opts     SyncOptions
}

func NewSyncService(c client.Client, db *sql.DB, repos repomanager.RepositoryManager, profiles ProfileService, logger logging.Logger, opts SyncOptions) SyncService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	return &syncService{client: c, db: db, repos: repos, profiles: profiles, logger: logger, opts: opts}
}

var errUnknownEvent = errors.New("unknown event type")

// backoffDelay is base*2^(attempt-1), capped at one hour.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 31 {
		return maxBackoff
	}
	delay := time.Duration(1<<uint(attempt-1)) * base
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}
	return delay
}

func isPermanent(err error) bool {
	return client.IsPermanent(err) ||
		errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, common.ErrProfileNotInitialized) ||
		errors.Is(err, errUnknownEvent)
}

func (s *syncService) RunOnce(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	start := time.Now()

	events, err := s.repos.Outbox(s.db).FetchDue(ctx, now(), s.opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(events) == 0 {
		return res, nil
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		typ := string(ev.EventType)
		evCtx := logging.ContextWith(ctx, "event_id", ev.ID, "type", typ)
		derr := s.dispatch(ctx, ev)
		switch {
		case derr == nil:
			if err := s.acknowledge(ctx, ev); err != nil {
				return res, err
			}
			deliveredCounter.WithLabelValues(typ).Inc()
			res.Delivered++

		case errors.Is(derr, client.ErrUnauthorized):
			s.logger.Warn(evCtx, "sync stopped: session rejected", "error", derr)
			return res, derr

		case ctx.Err() != nil:
			return res, ctx.Err()

		case isPermanent(derr):
			s.logger.Error(evCtx, "outbox event rejected", "error", derr)
			if err := s.fail(ctx, ev, ev.Attempts+1, derr); err != nil {
				return res, err
			}
			failedCounter.WithLabelValues(typ, "rejected").Inc()
			res.Failed++

		default:
			attempts := ev.Attempts + 1
			if attempts >= s.opts.MaxAttempts {
				s.logger.Error(evCtx, "outbox event exhausted retries", "attempts", attempts, "error", derr)
				if err := s.fail(ctx, ev, attempts, derr); err != nil {
					return res, err
				}
				failedCounter.WithLabelValues(typ, "exhausted").Inc()
				res.Failed++
				continue
			}
			next := now().Add(backoffDelay(s.opts.BaseBackoff, attempts))
			s.logger.Warn(evCtx, "outbox delivery failed, will retry",
				"attempts", attempts, "next_attempt_at", next, "error", derr)
			if err := s.repos.Outbox(s.db).MarkRetry(ctx, ev.ID, attempts, next, derr.Error()); err != nil {
				return res, err
			}
			retriedCounter.WithLabelValues(typ).Inc()
			res.Retried++
		}
	}
	return res, nil
}

// acknowledge marks ev synced. An event that absorbed a newer mutation
// while in flight stays queued and is sent again right away.
func (s *syncService) acknowledge(ctx context.Context, ev *models.OutboxEvent) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Outbox(tx)
		cur, err := repo.Get(ctx, ev.ID)
		if err != nil {
			return err
		}
		if !cur.UpdatedAt.Equal(ev.UpdatedAt) {
			return repo.MarkRetry(ctx, ev.ID, 0, now(), "")
		}
		return repo.MarkSynced(ctx, ev.ID)
	})
}

// fail marks the event and its entity failed. Profile events have no entity
// status; their pending fields stay so the edit is not lost.
func (s *syncService) fail(ctx context.Context, ev *models.OutboxEvent, attempts int, cause error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Outbox(tx).MarkFailed(ctx, ev.ID, attempts, cause.Error()); err != nil {
			return err
		}
		var err error
		switch ev.EventType {
		case models.EventProgressLogged:
			err = s.repos.Progress(tx).MarkFailed(ctx, ev.EntityID)
		case models.EventMoodLogged:
			err = s.repos.Mood(tx).MarkFailed(ctx, ev.EntityID)
		case models.EventMealLogged:
			err = s.repos.MealLogs(tx).UpdateStatus(ctx, ev.EntityID, models.MealLogFailed)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	})
}

func (s *syncService) dispatch(ctx context.Context, ev *models.OutboxEvent) error {
	switch ev.EventType {
	case models.EventProfileMetadataUpdated:
		return s.deliverMetadata(ctx, ev)
	case models.EventProfilePhysicalUpdated:
		return s.deliverPhysical(ctx, ev)
	case models.EventProgressLogged:
		return s.deliverProgress(ctx, ev)
	case models.EventMoodLogged:
		return s.deliverMood(ctx, ev)
	case models.EventMealLogged:
		return s.deliverMealLog(ctx, ev)
	}
	return fmt.Errorf("%w: %s", errUnknownEvent, ev.EventType)
}

// deliverMetadata sends the current cached metadata; the payload is only a
// fallback for a profile that has since disappeared from the cache.
func (s *syncService) deliverMetadata(ctx context.Context, ev *models.OutboxEvent) error {
	local, err := loadProfile(ctx, s.repos, s.db, ev.EntityID)
	if err != nil {
		return err
	}
	var sent models.UserProfileMetadata
	if local != nil {
		sent = local.Metadata
	} else if err := json.Unmarshal(ev.Payload, &sent); err != nil {
		return fmt.Errorf("%w: decode metadata payload: %v", common.ErrValidation, err)
	}

	remote, err := s.client.UpdateProfile(ctx, sent)
	if err != nil {
		return err
	}
	return s.acknowledgeMetadata(ctx, ev.EntityID, sent.UpdatedAt, remote)
}

// acknowledgeMetadata clears pending fields unless the metadata was edited
// again while the request was in flight, then merges the response.
func (s *syncService) acknowledgeMetadata(ctx context.Context, userID string, sentAt time.Time, remote *models.UserProfile) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		local, err := loadProfile(ctx, s.repos, tx, userID)
		if err != nil {
			return err
		}
		if local != nil && local.Metadata.UpdatedAt.Equal(sentAt) {
			local.PendingFields = nil
		}
		email := ""
		if local != nil {
			email = local.Email
		}
		return s.repos.Profiles(tx).Upsert(ctx, mergeRemote(local, remote, &User{ID: userID, Email: email}))
	})
}

// deliverPhysical pushes the cached physical profile. A backend without a
// profile for the user is initialised from the cached metadata first.
func (s *syncService) deliverPhysical(ctx context.Context, ev *models.OutboxEvent) error {
	local, err := loadProfile(ctx, s.repos, s.db, ev.EntityID)
	if err != nil {
		return err
	}
	var phys models.PhysicalProfile
	switch {
	case local != nil && local.Physical != nil:
		phys = *local.Physical
	default:
		if err := json.Unmarshal(ev.Payload, &phys); err != nil {
			return fmt.Errorf("%w: decode physical payload: %v", common.ErrValidation, err)
		}
	}

	remote, err := s.client.UpdatePhysical(ctx, phys)
	if errors.Is(err, client.ErrNotFound) {
		if local == nil {
			return common.ErrProfileNotInitialized
		}
		s.logger.Info(ctx, "backend profile missing, initializing before physical update", "user_id", ev.EntityID)
		created, perr := s.client.UpdateProfile(ctx, local.Metadata)
		if perr != nil {
			return perr
		}
		if err := s.acknowledgeMetadata(ctx, ev.EntityID, local.Metadata.UpdatedAt, created); err != nil {
			return err
		}
		remote, err = s.client.UpdatePhysical(ctx, phys)
	}
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := loadProfile(ctx, s.repos, tx, ev.EntityID)
		if err != nil || cur == nil {
			return err
		}
		cur.Physical = models.MergePhysical(cur.Physical, remote)
		return s.repos.Profiles(tx).Upsert(ctx, cur)
	})
}

func (s *syncService) deliverProgress(ctx context.Context, ev *models.OutboxEvent) error {
	repo := s.repos.Progress(s.db)
	e, err := repo.Get(ctx, ev.EntityID)
	if err != nil {
		return err
	}
	if e.SyncStatus == models.SyncStatusSynced && e.BackendID != nil {
		return nil
	}
	backendID, err := s.client.CreateProgress(ctx, e)
	if err != nil {
		return err
	}
	return repo.MarkSynced(ctx, e.ID, backendID)
}

func (s *syncService) deliverMood(ctx context.Context, ev *models.OutboxEvent) error {
	repo := s.repos.Mood(s.db)
	e, err := repo.Get(ctx, ev.EntityID)
	if err != nil {
		return err
	}
	if e.SyncStatus == models.SyncStatusSynced && e.BackendID != nil {
		return nil
	}
	backendID, err := s.client.CreateMood(ctx, e)
	if err != nil {
		return err
	}
	return repo.MarkSynced(ctx, e.ID, backendID)
}

func (s *syncService) deliverMealLog(ctx context.Context, ev *models.OutboxEvent) error {
	repo := s.repos.MealLogs(s.db)
	m, err := repo.Get(ctx, ev.EntityID)
	if err != nil {
		return err
	}
	if m.BackendID != nil {
		return nil
	}
	backendID, status, err := s.client.SubmitMealLog(ctx, m)
	if err != nil {
		return err
	}
	return repo.Accept(ctx, m.ID, backendID, status)
}

func (s *syncService) Sync(ctx context.Context) (SyncResult, error) {
	res, err := s.RunOnce(ctx)
	if err != nil {
		return res, err
	}

	if _, err := s.profiles.Refresh(ctx); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return res, fmt.Errorf("refresh profile: %w", err)
	}

	at := now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := s.repos.Metadata(tx)
		if err := meta.SetTime(ctx, metadata.KeyLastSyncAt, at); err != nil {
			return err
		}
		u, err := currentUser(ctx, meta)
		if err != nil {
			return err
		}
		p, err := loadProfile(ctx, s.repos, tx, u.ID)
		if err != nil || p == nil {
			return err
		}
		p.LastSuccessfulSyncAt = &at
		return s.repos.Profiles(tx).Upsert(ctx, p)
	})
	if err != nil {
		return res, fmt.Errorf("record sync time: %w", err)
	}
	s.logger.Info(ctx, "sync completed", "delivered", res.Delivered, "retried", res.Retried, "failed", res.Failed)
	return res, nil
}

func (s *syncService) RetryFailed(ctx context.Context) (int, error) {
	var n int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		events, err := s.repos.Outbox(tx).RequeueFailed(ctx, now())
		if err != nil {
			return err
		}
		for _, ev := range events {
			switch ev.EventType {
			case models.EventProgressLogged:
				err = s.repos.Progress(tx).MarkPending(ctx, ev.EntityID)
			case models.EventMoodLogged:
				err = s.repos.Mood(tx).MarkPending(ctx, ev.EntityID)
			case models.EventMealLogged:
				err = s.repos.MealLogs(tx).UpdateStatus(ctx, ev.EntityID, models.MealLogPending)
			}
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}
		n = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *syncService) Status(ctx context.Context) (*SyncReport, error) {
	stats, err := s.repos.Outbox(s.db).Stats(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.repos.Metadata(s.db).GetTime(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return nil, err
	}
	return &SyncReport{Outbox: stats, LastSyncAt: last}, nil
}
