// Package sink delivers normalized events to downstream consumers.
package sink

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// Publisher hands one normalized event downstream. Delivery is
// at-least-once; consumers dedupe by platform_event_id.
type Publisher interface {
	Publish(ctx context.Context, event *domain.NormalizedEvent) error
	Close() error
}

// LogSink writes normalized events to the log. It is used when no broker is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, event *domain.NormalizedEvent) error {
	s.logger.Info("normalized event",
		"webhook_event_id", event.WebhookEventID,
		"platform", event.Platform,
		"event_type", event.EventType,
		"object_type", event.ObjectType,
		"object_id", event.ObjectID,
		"platform_event_id", event.PlatformEventID,
		"metrics", event.EngagementMetrics,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
