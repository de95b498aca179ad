package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool used by repositories. pgxmock
// pools satisfy it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// WebhookConfigRepositoryInterface defines operations for webhook config data access
type WebhookConfigRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	ListActiveByPlatform(ctx context.Context, platform domain.Platform, limit int) ([]*domain.WebhookConfig, error)
	Create(ctx context.Context, cfg *domain.WebhookConfig) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	TouchVerified(ctx context.Context, id uuid.UUID) (time.Time, error)
}

// WebhookEventRepositoryInterface defines operations for webhook event data access
type WebhookEventRepositoryInterface interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkIgnored(ctx context.Context, id uuid.UUID, reason string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.WebhookEvent, error)
	Retry(ctx context.Context, id uuid.UUID) error
	ClaimDueRetries(ctx context.Context, limit int) ([]uuid.UUID, error)
	ClaimStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]uuid.UUID, error)
	ResetStuckProcessing(ctx context.Context, olderThan time.Duration) (int64, error)
	ListFailed(ctx context.Context, terminalOnly bool, limit, offset int) ([]*domain.WebhookEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryMetricRepositoryInterface defines operations for delivery metric data access
type DeliveryMetricRepositoryInterface interface {
	IncrementReceived(ctx context.Context, configID uuid.UUID, platform domain.Platform, day time.Time) error
	IncrementOutcome(ctx context.Context, outcome Outcome) error
	ListDaily(ctx context.Context, configID uuid.UUID, from, to time.Time) ([]*domain.DeliveryMetric, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
