// Package metrics records per-config daily delivery counters.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/repository"
)

// Store is the persistence the recorder needs.
type Store interface {
	IncrementReceived(ctx context.Context, configID uuid.UUID, platform domain.Platform, day time.Time) error
	IncrementOutcome(ctx context.Context, outcome repository.Outcome) error
	ListDaily(ctx context.Context, configID uuid.UUID, from, to time.Time) ([]*domain.DeliveryMetric, error)
}

// Recorder folds ingestion and processing results into the daily row for
// (config, platform, UTC day).
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to pick the metric day.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordReceived counts one accepted delivery.
func (r *Recorder) RecordReceived(ctx context.Context, cfg *domain.WebhookConfig) error {
	day := domain.MetricDay(r.now())
	if err := r.store.IncrementReceived(ctx, cfg.ID, cfg.Platform, day); err != nil {
		return fmt.Errorf("record received: %w", err)
	}
	return nil
}

// RecordOutcome counts one processing result. processingMs only affects the
// running mean of processed events.
func (r *Recorder) RecordOutcome(ctx context.Context, cfg *domain.WebhookConfig, eventType string, status domain.EventStatus, processingMs float64) error {
	err := r.store.IncrementOutcome(ctx, repository.Outcome{
		ConfigID:     cfg.ID,
		Platform:     cfg.Platform,
		Day:          domain.MetricDay(r.now()),
		EventType:    eventType,
		Status:       status,
		ProcessingMs: processingMs,
	})
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	r.logger.Debug("delivery outcome recorded",
		"config_id", cfg.ID,
		"platform", cfg.Platform,
		"event_type", eventType,
		"status", status,
		"processing_ms", processingMs,
	)
	return nil
}

// Daily returns the day rows for configID between from and to inclusive.
func (r *Recorder) Daily(ctx context.Context, configID uuid.UUID, from, to time.Time) ([]*domain.DeliveryMetric, error) {
	from, to = domain.MetricDay(from), domain.MetricDay(to)
	if to.Before(from) {
		return nil, domain.ErrBadRequest.WithError(fmt.Errorf("range end %s before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly)))
	}

	rows, err := r.store.ListDaily(ctx, configID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	return rows, nil
}

// Summary returns Daily rolled up into one total.
func (r *Recorder) Summary(ctx context.Context, configID uuid.UUID, from, to time.Time) (*Summary, error) {
	rows, err := r.Daily(ctx, configID, from, to)
	if err != nil {
		return nil, err
	}

	s := Summarize(rows)
	s.From = domain.MetricDay(from)
	s.To = domain.MetricDay(to)
	return s, nil
}
