package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server/config"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

const (
	analyzeTimeout = 30 * time.Second
	sweepInterval  = 15 * time.Second
)

// Publisher is told about every meal log that reached a terminal status.
type Publisher interface {
	PublishMealLog(ctx context.Context, m *models.MealLog)
}

// MealLogService accepts natural-language meal logs and analyses them on a
// bounded pool of workers. Submitted logs stay "processing" until a worker
// completes or fails them. A periodic sweep queues processing logs that are
// not already queued, which covers submissions made while the queue was full
// and logs left over by a previous run.
type MealLogService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	analyzer      Analyzer
	publisher     Publisher
	logger        logging.Logger
	workers       int
	sweepInterval time.Duration
	jobs          chan *models.MealLog

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewMealLogService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	analyzer Analyzer, publisher Publisher, logger logging.Logger) *MealLogService {
	return &MealLogService{
		db:            db,
		repomanager:   m,
		analyzer:      analyzer,
		publisher:     publisher,
		logger:        logger,
		workers:       cfg.MealWorkers,
		sweepInterval: sweepInterval,
		jobs:          make(chan *models.MealLog, cfg.MealQueueSize),
		inflight:      make(map[string]struct{}),
	}
}

// Submit stores m as processing and queues it without waiting. A repeated
// ClientID returns the stored log without queueing it again.
func (s *MealLogService) Submit(ctx context.Context, m *models.MealLog) (*models.MealLog, error) {
	check := domain.MealLog{UserID: m.UserID, RawInput: m.RawInput, MealType: domain.MealType(m.MealType)}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	if m.LoggedAt.IsZero() {
		m.LoggedAt = time.Now()
	}
	m.LoggedAt = m.LoggedAt.UTC()
	m.Status = models.MealLogProcessing

	saved, created, err := s.repomanager.MealLogs(s.db).Create(ctx, m)
	if err != nil {
		return nil, err
	}
	if created && !s.enqueue(saved) {
		s.logger.Warn(ctx, "meal analysis queue full, deferring to sweep", "meal_log_id", saved.ID)
	}
	return saved, nil
}

// enqueue reports false only when the queue is full. A log that is already
// queued or being processed counts as queued.
func (s *MealLogService) enqueue(m *models.MealLog) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[m.ID]; ok {
		return true
	}
	select {
	case s.jobs <- m:
		s.inflight[m.ID] = struct{}{}
		return true
	default:
		return false
	}
}

func (s *MealLogService) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *MealLogService) Get(ctx context.Context, userID, id string) (*models.MealLog, error) {
	return s.repomanager.MealLogs(s.db).Get(ctx, userID, id)
}

func (s *MealLogService) List(ctx context.Context, userID string, limit int) ([]*models.MealLog, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repomanager.MealLogs(s.db).List(ctx, userID, limit)
}

// Run processes the queue and sweeps for unqueued logs until ctx is done.
func (s *MealLogService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case m := <-s.jobs:
					s.process(ctx, m)
					s.release(m.ID)
				}
			}
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			s.sweep(ctx)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

func (s *MealLogService) sweep(ctx context.Context) {
	pending, err := s.repomanager.MealLogs(s.db).ListProcessing(ctx, cap(s.jobs))
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn(ctx, "failed to list unfinished meal logs", "error", err)
		}
		return
	}
	queued := 0
	for _, m := range pending {
		s.mu.Lock()
		_, busy := s.inflight[m.ID]
		s.mu.Unlock()
		if busy {
			continue
		}
		if !s.enqueue(m) {
			break
		}
		queued++
	}
	if queued > 0 {
		s.logger.Info(ctx, "requeued unfinished meal logs", "count", queued)
	}
}

func (s *MealLogService) process(ctx context.Context, m *models.MealLog) {
	actx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	items, err := s.analyzer.Analyze(actx, m.RawInput)
	cancel()

	if ctx.Err() != nil {
		return
	}

	repo := s.repomanager.MealLogs(s.db)
	var done *models.MealLog
	if err != nil {
		s.logger.Warn(ctx, "meal log analysis failed", "meal_log_id", m.ID, "error", err)
		done, err = repo.Fail(ctx, m.ID, err.Error())
	} else {
		done, err = repo.Complete(ctx, m.ID, items, totalCalories(items))
	}
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Debug(ctx, "meal log already finished", "meal_log_id", m.ID)
		return
	}
	if err != nil {
		s.logger.Error(ctx, "failed to store meal log result", "meal_log_id", m.ID, "error", err)
		return
	}
	s.logger.Debug(ctx, "meal log processed", "meal_log_id", done.ID, "status", done.Status)
	s.publisher.PublishMealLog(ctx, done)
}
