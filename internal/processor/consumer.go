// Package processor turns pending webhook events into normalized events
// and records the outcome.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/normalizer"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/queue"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/sink"
)

// EventStore is the event lifecycle the consumer drives.
type EventStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkIgnored(ctx context.Context, id uuid.UUID, reason string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.WebhookEvent, error)
}

// ConfigStore looks up the config an event belongs to.
type ConfigStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
}

// OutcomeRecorder counts processing results.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, cfg *domain.WebhookConfig, eventType string, status domain.EventStatus, processingMs float64) error
}

// ConsumerConfig tunes the worker pool.
type ConsumerConfig struct {
	Concurrency int
	// QueueSize bounds tasks waiting for a worker; Dequeue pauses while full.
	QueueSize   int
	PollTimeout time.Duration
}

// Consumer pulls event ids off the queue and processes each on a pond
// worker pool.
type Consumer struct {
	queue     queue.Queue
	events    EventStore
	configs   ConfigStore
	publisher sink.Publisher
	metrics   OutcomeRecorder
	cfg       ConsumerConfig
	logger    *slog.Logger
	now       func() time.Time

	pool    pond.Pool
	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewConsumer(
	q queue.Queue,
	events EventStore,
	configs ConfigStore,
	publisher sink.Publisher,
	metrics OutcomeRecorder,
	cfg ConsumerConfig,
	logger *slog.Logger,
) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Concurrency * 4
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}

	return &Consumer{
		queue:     q,
		events:    events,
		configs:   configs,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Run consumes until ctx is cancelled or Stop is called, then waits for
// in-flight events.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.stopped)

	c.pool = pond.NewPool(c.cfg.Concurrency, pond.WithQueueSize(c.cfg.QueueSize))
	defer c.pool.StopAndWait()

	c.logger.Info("event consumer started", "concurrency", c.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("event consumer stopped")
			return
		case <-c.stopCh:
			c.logger.Info("event consumer stopped")
			return
		default:
		}

		id, err := c.queue.Dequeue(ctx, c.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("failed to dequeue event", "error", err)
			c.sleep(ctx, time.Second)
			continue
		}

		// The task outlives the poll loop's ctx so Stop drains cleanly.
		taskCtx := context.WithoutCancel(ctx)
		c.pool.Submit(func() {
			if err := c.Process(taskCtx, id); err != nil {
				c.logger.Error("failed to process event", "event_id", id, "error", err)
			}
		})
	}
}

// Stop ends Run and waits for in-flight events.
func (c *Consumer) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	<-c.stopped
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-c.stopCh:
	}
}

// Process claims one event, normalizes it, publishes the result and
// records the outcome. An event that is no longer pending is skipped, which
// makes duplicate queue deliveries harmless. The returned error only
// reports bookkeeping failures; a failed publish is recorded on the event.
func (c *Consumer) Process(ctx context.Context, id uuid.UUID) error {
	start := c.now()

	event, err := c.events.MarkProcessing(ctx, id)
	if errors.Is(err, domain.ErrInvalidTransition) {
		c.logger.Debug("event already claimed", "event_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}

	cfg, err := c.configs.GetByID(ctx, event.WebhookConfigID)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return c.ignore(ctx, event, nil, "webhook config removed")
	}
	if err != nil {
		return c.fail(ctx, event, nil, fmt.Errorf("load config: %w", err))
	}

	if !cfg.IsActive {
		return c.ignore(ctx, event, cfg, "webhook config inactive")
	}

	n, err := normalizer.For(event.Platform)
	if err != nil {
		return c.ignore(ctx, event, cfg, "unsupported platform")
	}

	normalized := n.Normalize(event)

	if !cfg.IsSubscribedTo(normalized.EventType) {
		return c.ignore(ctx, event, cfg, fmt.Sprintf("not subscribed to %s", normalized.EventType))
	}

	if err := c.publisher.Publish(ctx, normalized); err != nil {
		return c.fail(ctx, event, cfg, err)
	}

	if err := c.events.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	elapsed := float64(c.now().Sub(start).Microseconds()) / 1000
	c.recordOutcome(ctx, cfg, normalized.EventType, domain.StatusProcessed, elapsed)

	c.logger.Info("event processed",
		"event_id", event.ID,
		"platform", event.Platform,
		"event_type", normalized.EventType,
		"processing_ms", elapsed,
	)
	return nil
}

func (c *Consumer) ignore(ctx context.Context, event *domain.WebhookEvent, cfg *domain.WebhookConfig, reason string) error {
	if err := c.events.MarkIgnored(ctx, event.ID, reason); err != nil {
		return fmt.Errorf("mark ignored: %w", err)
	}
	c.recordOutcome(ctx, cfg, event.EventType, domain.StatusIgnored, 0)

	c.logger.Info("event ignored", "event_id", event.ID, "reason", reason)
	return nil
}

func (c *Consumer) fail(ctx context.Context, event *domain.WebhookEvent, cfg *domain.WebhookConfig, cause error) error {
	failed, err := c.events.MarkFailed(ctx, event.ID, cause.Error())
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	c.recordOutcome(ctx, cfg, event.EventType, domain.StatusFailed, 0)

	if failed.NextRetryAt != nil {
		c.logger.Warn("event failed, retry scheduled",
			"event_id", event.ID,
			"retry_count", failed.RetryCount,
			"next_retry_at", failed.NextRetryAt,
			"error", cause,
		)
	} else {
		c.logger.Error("event failed permanently",
			"event_id", event.ID,
			"retry_count", failed.RetryCount,
			"error", cause,
		)
	}
	return nil
}

func (c *Consumer) recordOutcome(ctx context.Context, cfg *domain.WebhookConfig, eventType string, status domain.EventStatus, ms float64) {
	if cfg == nil {
		return
	}
	if err := c.metrics.RecordOutcome(ctx, cfg, eventType, status, ms); err != nil {
		c.logger.Error("failed to record outcome metric",
			"config_id", cfg.ID,
			"status", status,
			"error", err,
		)
	}
}
