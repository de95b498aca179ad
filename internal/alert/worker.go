package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
)

const configsPerPlatform = 1000

// ConfigLister lists the configs to watch.
type ConfigLister interface {
	ListActiveByPlatform(ctx context.Context, platform domain.Platform, limit int) ([]*domain.WebhookConfig, error)
}

// SummaryReader reads aggregated delivery counters.
type SummaryReader interface {
	Summary(ctx context.Context, configID uuid.UUID, from, to time.Time) (*metrics.Summary, error)
}

type WorkerConfig struct {
	Interval time.Duration
	// Days is how many UTC days, today included, each evaluation covers.
	Days int
	// Cooldown suppresses repeats of the same rule for the same config.
	Cooldown time.Duration
}

type Worker struct {
	configs   ConfigLister
	summaries SummaryReader
	engine    *Engine
	notifier  Notifier
	store     cache.Store
	cfg       WorkerConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewWorker(configs ConfigLister, summaries SummaryReader, engine *Engine, notifier Notifier, store cache.Store, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Days <= 0 {
		cfg.Days = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}

	return &Worker{
		configs:   configs,
		summaries: summaries,
		engine:    engine,
		notifier:  notifier,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for the evaluation window.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("alert worker started", "interval", w.cfg.Interval, "rules", len(w.engine.Rules()))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("alert worker stopped")
			return
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) process(ctx context.Context) {
	for _, platform := range domain.Platforms {
		configs, err := w.configs.ListActiveByPlatform(ctx, platform, configsPerPlatform)
		if err != nil {
			w.logger.Error("failed to list configs for alerting", "platform", platform, "error", err)
			continue
		}

		for _, cfg := range configs {
			if err := w.evaluateConfig(ctx, cfg); err != nil {
				w.logger.Error("failed to evaluate alerts",
					"config_id", cfg.ID,
					"platform", cfg.Platform,
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) evaluateConfig(ctx context.Context, cfg *domain.WebhookConfig) error {
	now := w.now()
	to := domain.MetricDay(now)
	from := to.AddDate(0, 0, -(w.cfg.Days - 1))

	summary, err := w.summaries.Summary(ctx, cfg.ID, from, to)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}

	for _, f := range w.engine.Evaluate(summary) {
		key := fmt.Sprintf("alert:rule:%s:%s", f.Rule.Name, cfg.ID)
		first, err := w.store.SetNX(ctx, key, []byte("1"), w.cfg.Cooldown)
		if err != nil {
			return fmt.Errorf("alert cooldown: %w", err)
		}
		if !first {
			w.logger.Debug("alert in cooldown", "rule", f.Rule.Name, "config_id", cfg.ID)
			continue
		}

		a := &Alert{
			ID:          uuid.New(),
			Rule:        f.Rule,
			ConfigID:    cfg.ID,
			Platform:    cfg.Platform,
			Value:       f.Value,
			Received:    summary.TotalReceived,
			TriggeredAt: now,
		}
		if err := w.notifier.Notify(ctx, a); err != nil {
			w.logger.Error("failed to send alert notification",
				"alert_id", a.ID,
				"rule", f.Rule.Name,
				"error", err,
			)
		}
	}
	return nil
}
