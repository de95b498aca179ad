package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const webhookEventColumns = `id, webhook_config_id, social_account_id, platform, event_type, object_type, object_id, event_id, payload, signature, status, error_message, retry_count, next_retry_at, received_at, processed_at`

type WebhookEventRepository struct {
	pool PgxPool
}

func NewWebhookEventRepository(pool PgxPool) *WebhookEventRepository {
	return &WebhookEventRepository{pool: pool}
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	var e domain.WebhookEvent
	err := row.Scan(
		&e.ID,
		&e.WebhookConfigID,
		&e.SocialAccountID,
		&e.Platform,
		&e.EventType,
		&e.ObjectType,
		&e.ObjectID,
		&e.EventID,
		&e.Payload,
		&e.Signature,
		&e.Status,
		&e.ErrorMessage,
		&e.RetryCount,
		&e.NextRetryAt,
		&e.ReceivedAt,
		&e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *domain.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, webhook_config_id, social_account_id, platform, event_type, object_type, object_id, event_id, payload, signature, status, retry_count, received_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, NOW())
	`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.WebhookConfigID,
		e.SocialAccountID,
		e.Platform,
		e.EventType,
		e.ObjectType,
		e.ObjectID,
		e.EventID,
		e.Payload,
		e.Signature,
		e.Status,
		e.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}

	return nil
}

func (r *WebhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	query := `
		SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE id = $1
	`

	e, err := scanWebhookEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event by id: %w", err)
	}

	return e, nil
}

// MarkProcessing claims a pending event. A second claim of the same event
// fails with ErrInvalidTransition, which makes duplicate queue deliveries
// harmless.
func (r *WebhookEventRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	query := `
		UPDATE webhook_events
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + webhookEventColumns

	e, err := scanWebhookEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("mark webhook event processing: %w", err)
	}

	return e, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_events
		SET status = 'processed', error_message = NULL, next_retry_at = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	return r.execTransition(ctx, "mark webhook event processed", query, id)
}

func (r *WebhookEventRepository) MarkIgnored(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE webhook_events
		SET status = 'ignored', error_message = $2, next_retry_at = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	return r.execTransition(ctx, "mark webhook event ignored", query, id, reason)
}

// MarkFailed records a processing failure, bumps retry_count and schedules
// the next attempt from domain.RetrySchedule. Once retry_count exceeds
// domain.MaxRetries next_retry_at stays NULL.
func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.WebhookEvent, error) {
	query := `
		UPDATE webhook_events
		SET status = 'failed',
		    error_message = $2,
		    retry_count = retry_count + 1,
		    next_retry_at = CASE
				WHEN retry_count + 1 <= $4 THEN NOW() + make_interval(secs => ($3::int[])[LEAST(retry_count + 1, cardinality($3::int[]))])
				ELSE NULL
			END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + webhookEventColumns

	e, err := scanWebhookEvent(r.pool.QueryRow(ctx, query, id, reason, retryScheduleSeconds(), domain.MaxRetries))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("mark webhook event failed: %w", err)
	}

	return e, nil
}

func retryScheduleSeconds() []int32 {
	out := make([]int32, len(domain.RetrySchedule))
	for i, d := range domain.RetrySchedule {
		out[i] = int32(d / time.Second)
	}
	return out
}

// Retry re-arms a failed event on operator request, including events that
// exhausted automatic retries.
func (r *WebhookEventRepository) Retry(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_events
		SET status = 'pending', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`

	err := r.execTransition(ctx, "retry webhook event", query, id)
	if errors.Is(err, domain.ErrInvalidTransition) {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, domain.ErrEventNotFound) {
			return domain.ErrEventNotFound
		}
	}
	return err
}

// ClaimDueRetries moves failed events whose backoff elapsed back to pending
// and returns their ids.
func (r *WebhookEventRepository) ClaimDueRetries(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE webhook_events
		SET status = 'pending', next_retry_at = NULL, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE status = 'failed'
			  AND retry_count <= $1
			  AND next_retry_at IS NOT NULL
			  AND next_retry_at <= NOW()
			ORDER BY next_retry_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	return r.claimIDs(ctx, "claim due retries", query, domain.MaxRetries, limit)
}

// ClaimStalePending returns pending events untouched for olderThan and
// refreshes their timestamp so the next sweep does not pick them again.
func (r *WebhookEventRepository) ClaimStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE webhook_events
		SET updated_at = NOW()
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE status = 'pending'
			  AND updated_at < NOW() - make_interval(secs => $1)
			ORDER BY received_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	return r.claimIDs(ctx, "claim stale pending events", query, olderThan.Seconds(), limit)
}

// ResetStuckProcessing returns events left in processing by a crashed
// worker to pending.
func (r *WebhookEventRepository) ResetStuckProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE webhook_events
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'processing'
		  AND updated_at < NOW() - make_interval(secs => $1)
	`

	result, err := r.pool.Exec(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reset stuck webhook events: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListFailed returns failed events, newest first. terminalOnly restricts the
// list to events that exhausted automatic retries.
func (r *WebhookEventRepository) ListFailed(ctx context.Context, terminalOnly bool, limit, offset int) ([]*domain.WebhookEvent, error) {
	query := `
		SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE status = 'failed'
		  AND ($1 = false OR retry_count > $2)
		ORDER BY received_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, terminalOnly, domain.MaxRetries, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list failed webhook events: %w", err)
	}
	defer rows.Close()

	var events []*domain.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook events: %w", err)
	}

	return events, nil
}

// DeleteOlderThan removes events received before cutoff that are no longer
// in flight.
func (r *WebhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM webhook_events
		WHERE received_at < $1
		  AND status IN ('processed', 'ignored', 'failed')
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old webhook events: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *WebhookEventRepository) execTransition(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *WebhookEventRepository) claimIDs(ctx context.Context, op, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}
