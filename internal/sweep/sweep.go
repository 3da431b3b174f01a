package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/opencivic/civictriage/config"
	"github.com/opencivic/civictriage/internal/dedupe"
	apperrors "github.com/opencivic/civictriage/internal/errors"
	"github.com/opencivic/civictriage/internal/logger"
	"github.com/opencivic/civictriage/internal/metrics"
	"github.com/opencivic/civictriage/internal/models"
)

// Store interface for ticket storage
type Store interface {
	OpenTickets(ctx context.Context) ([]models.Ticket, error)
	UpsertTickets(ctx context.Context, tickets []models.Ticket) error
}

// Sweeper periodically collapses duplicate tickets that slipped past
// submission-time dedupe, for example near-simultaneous reports.
type Sweeper struct {
	store   Store
	engine  *dedupe.Engine
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	cfg     config.SweepConfig
	mu      sync.RWMutex
	running bool
}

// New creates a new sweeper instance
func New(store Store, engine *dedupe.Engine, cfg config.SweepConfig) *Sweeper {
	s := &Sweeper{
		store:   store,
		engine:  engine,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)),
		sem:     semaphore.NewWeighted(int64(cfg.WorkerCount)),
	}

	logger.Info("Sweeper initialized",
		"interval", cfg.Interval,
		"rate_limit", cfg.RateLimit,
		"workers", cfg.WorkerCount,
	)

	return s
}

// Run starts the sweeper and runs until context is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger.Info("Starting sweeper")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Initial immediate run
	if err := s.RunOnce(ctx); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				logger.Error("Sweep failed", "error", err)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.cfg.RetryDelay):
					// Continue after delay
				}
			}
		}
	}
}

// RunOnce executes a single sweep over the open tickets
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := time.Now()

	// Acquire semaphore to limit concurrent processing
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &apperrors.SweepError{Stage: "acquire", Err: err}
	}
	defer s.sem.Release(1)

	// Rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return &apperrors.SweepError{Stage: "rate_limit", Err: err}
	}

	// Load open tickets with retry logic
	var tickets []models.Ticket
	var err error

	for attempt := 0; attempt <= s.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * s.cfg.RetryDelay
			logger.Debug("Retrying ticket load", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		tickets, err = s.store.OpenTickets(ctx)
		if err == nil {
			break
		}

		logger.Warn("Ticket load attempt failed",
			"attempt", attempt+1,
			"error", err,
		)
	}

	if err != nil {
		return &apperrors.SweepError{Stage: "load", Err: err}
	}

	if len(tickets) == 0 {
		logger.Debug("No open tickets to sweep")
		return nil
	}

	modified := s.collapse(tickets)

	if len(modified) > 0 {
		if err := s.storeModified(ctx, modified); err != nil {
			return &apperrors.SweepError{Stage: "store", Err: err}
		}
	}

	duration := time.Since(start)
	metrics.RecordSweepRun(duration, len(modified))
	logger.Info("Sweep completed",
		"tickets", len(tickets),
		"collapsed", len(modified),
		"duration_ms", duration.Milliseconds(),
	)

	return nil
}

// collapse walks the open tickets oldest first and marks later tickets
// that duplicate an earlier master. Already-collapsed tickets keep their
// existing master and never become masters themselves.
func (s *Sweeper) collapse(tickets []models.Ticket) []models.Ticket {
	// OpenTickets returns newest first; masters must be seen first
	ordered := make([]models.Ticket, len(tickets))
	for i, t := range tickets {
		ordered[len(tickets)-1-i] = t
	}

	var masters []models.Ticket
	var modified []models.Ticket

	for _, ticket := range ordered {
		if ticket.DuplicateOf != "" {
			continue
		}

		result := s.engine.CheckDuplicate(reportOf(ticket), masters)
		if result.IsDuplicate && result.MasterCaseID != ticket.ID {
			ticket.DuplicateOf = result.MasterCaseID
			ticket.UpdatedAt = time.Now().UTC()
			modified = append(modified, ticket)

			logger.Debug("Collapsed duplicate ticket",
				"ticket_id", ticket.ID,
				"master_id", result.MasterCaseID,
				"similarity", result.Similarity,
			)
			continue
		}

		masters = append(masters, ticket)
	}

	return modified
}

// storeModified upserts the collapsed tickets in batches
func (s *Sweeper) storeModified(ctx context.Context, tickets []models.Ticket) error {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(tickets)
	}

	for i := 0; i < len(tickets); i += batchSize {
		end := i + batchSize
		if end > len(tickets) {
			end = len(tickets)
		}

		if err := s.store.UpsertTickets(ctx, tickets[i:end]); err != nil {
			logger.Error("Batch store failed",
				"batch_start", i,
				"batch_size", end-i,
				"error", err,
			)
			return err
		}
	}

	return nil
}

// reportOf adapts a stored ticket to the dedupe engine's input
func reportOf(t models.Ticket) models.Report {
	category := t.Category
	return models.Report{
		Title:        t.Title,
		Description:  t.Description,
		CategoryHint: &category,
		Geo:          t.Geo,
		Media:        t.Media,
		CreatedAt:    t.CreatedAt,
	}
}

// IsRunning returns whether the sweeper is currently running
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
