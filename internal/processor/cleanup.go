package processor

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes rows older than cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiredCleaner removes expired cache rows. Only the Postgres cache needs
// it; Redis expires keys itself.
type ExpiredCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupConfig sets retention windows.
type CleanupConfig struct {
	Interval        time.Duration
	EventRetention  time.Duration
	MetricRetention time.Duration
}

// Cleanup enforces retention for events, daily metrics and cache rows.
type Cleanup struct {
	events  Pruner
	metrics Pruner
	cache   ExpiredCleaner
	cfg     CleanupConfig
	logger  *slog.Logger
	now     func() time.Time
	done    chan struct{}
}

// NewCleanup builds the retention worker. cache may be nil.
func NewCleanup(events, metrics Pruner, cache ExpiredCleaner, cfg CleanupConfig, logger *slog.Logger) *Cleanup {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.EventRetention <= 0 {
		cfg.EventRetention = 30 * 24 * time.Hour
	}
	if cfg.MetricRetention <= 0 {
		cfg.MetricRetention = 90 * 24 * time.Hour
	}

	return &Cleanup{
		events:  events,
		metrics: metrics,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Run runs the cleanup loop until ctx is cancelled or Stop is called.
func (c *Cleanup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.logger.Info("retention cleanup started", "interval", c.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("retention cleanup stopped")
			return
		case <-c.done:
			c.logger.Info("retention cleanup stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

func (c *Cleanup) Stop() {
	close(c.done)
}

// RunOnce performs one pass. Failures are logged and the next tick retries.
func (c *Cleanup) RunOnce(ctx context.Context) {
	now := c.now()

	deleted, err := c.events.DeleteOlderThan(ctx, now.Add(-c.cfg.EventRetention))
	if err != nil {
		c.logger.Error("failed to delete old webhook events", "error", err)
	} else if deleted > 0 {
		c.logger.Info("deleted old webhook events", "count", deleted)
	}

	deleted, err = c.metrics.DeleteOlderThan(ctx, now.Add(-c.cfg.MetricRetention))
	if err != nil {
		c.logger.Error("failed to delete old delivery metrics", "error", err)
	} else if deleted > 0 {
		c.logger.Info("deleted old delivery metrics", "count", deleted)
	}

	if c.cache == nil {
		return
	}
	deleted, err = c.cache.CleanupExpired(ctx)
	if err != nil {
		c.logger.Error("failed to clean expired cache entries", "error", err)
	} else if deleted > 0 {
		c.logger.Debug("cleaned expired cache entries", "count", deleted)
	}
}
