package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RetryStore exposes the event rows the sweeper recovers.
type RetryStore interface {
	ClaimDueRetries(ctx context.Context, limit int) ([]uuid.UUID, error)
	ClaimStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]uuid.UUID, error)
	ResetStuckProcessing(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Enqueuer is the producer side of the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, eventID uuid.UUID) error
}

// SweeperConfig tunes the recovery loop.
type SweeperConfig struct {
	Interval          time.Duration
	BatchSize         int
	StalePendingAfter time.Duration
	StuckAfter        time.Duration
}

// Sweeper is the durability backstop of the queue. Every tick it re-arms
// failed events whose backoff elapsed, returns events stuck in processing
// to pending and re-enqueues pending events nobody picked up.
type Sweeper struct {
	events RetryStore
	queue  Enqueuer
	cfg    SweeperConfig
	logger *slog.Logger
	stopCh chan struct{}
}

func NewSweeper(events RetryStore, q Enqueuer, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.StalePendingAfter <= 0 {
		cfg.StalePendingAfter = 2 * time.Minute
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = 10 * time.Minute
	}

	return &Sweeper{
		events: events,
		queue:  q,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("retry sweeper started", "interval", s.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry sweeper stopped")
			return
		case <-s.stopCh:
			s.logger.Info("retry sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("failed to sweep webhook events", "error", err)
			}
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// Sweep runs one recovery pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	reset, err := s.events.ResetStuckProcessing(ctx, s.cfg.StuckAfter)
	if err != nil {
		return fmt.Errorf("reset stuck events: %w", err)
	}
	if reset > 0 {
		s.logger.Warn("recovered events stuck in processing", "count", reset)
	}

	due, err := s.events.ClaimDueRetries(ctx, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim due retries: %w", err)
	}
	s.enqueue(ctx, due, "retry")

	stale, err := s.events.ClaimStalePending(ctx, s.cfg.StalePendingAfter, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim stale events: %w", err)
	}
	s.enqueue(ctx, stale, "stale")

	return nil
}

func (s *Sweeper) enqueue(ctx context.Context, ids []uuid.UUID, reason string) {
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			// The row stays pending and is picked up again once stale.
			s.logger.Error("failed to re-enqueue event", "event_id", id, "reason", reason, "error", err)
		}
	}

	s.logger.Info("re-enqueued events", "count", len(ids), "reason", reason)
}
