package admin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
)

// ConfigStore manages webhook configs.
type ConfigStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	Create(ctx context.Context, cfg *domain.WebhookConfig) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventStore exposes failed events to operators.
type EventStore interface {
	ListFailed(ctx context.Context, terminalOnly bool, limit, offset int) ([]*domain.WebhookEvent, error)
	Retry(ctx context.Context, id uuid.UUID) error
}

// MetricsReader reads delivery metrics.
type MetricsReader interface {
	Daily(ctx context.Context, configID uuid.UUID, from, to time.Time) ([]*domain.DeliveryMetric, error)
	Summary(ctx context.Context, configID uuid.UUID, from, to time.Time) (*metrics.Summary, error)
}

// BlockManager inspects and lifts IP blocks.
type BlockManager interface {
	Inspect(ctx context.Context, ip string) (security.BlockInfo, error)
	Unblock(ctx context.Context, ip string) error
}

// Enqueuer hands a re-armed event to the processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, eventID uuid.UUID) error
}
