package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// Outcome is one processing result to fold into the daily metric row.
type Outcome struct {
	ConfigID  uuid.UUID
	Platform  domain.Platform
	Day       time.Time
	EventType string
	Status    domain.EventStatus
	// ProcessingMs is only folded into the running mean when positive and
	// the event was processed.
	ProcessingMs float64
}

type DeliveryMetricRepository struct {
	pool PgxPool
}

func NewDeliveryMetricRepository(pool PgxPool) *DeliveryMetricRepository {
	return &DeliveryMetricRepository{pool: pool}
}

// IncrementReceived counts one accepted delivery.
func (r *DeliveryMetricRepository) IncrementReceived(ctx context.Context, configID uuid.UUID, platform domain.Platform, day time.Time) error {
	query := `
		INSERT INTO webhook_delivery_metrics AS m (id, webhook_config_id, platform, date, total_received)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (webhook_config_id, platform, date) DO UPDATE
		SET total_received = m.total_received + 1,
		    updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, uuid.New(), configID, platform, day)
	if err != nil {
		return fmt.Errorf("increment received metric: %w", err)
	}
	return nil
}

// IncrementOutcome folds one outcome into the day row. Every counter and the
// running mean are computed by the database in a single statement so
// concurrent writers never lose updates.
func (r *DeliveryMetricRepository) IncrementOutcome(ctx context.Context, o Outcome) error {
	query := `
		INSERT INTO webhook_delivery_metrics AS m (
			id, webhook_config_id, platform, date,
			successfully_processed, failed, ignored, retry_attempts,
			average_processing_time, event_types
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6, $8, jsonb_build_object($9::text, 1))
		ON CONFLICT (webhook_config_id, platform, date) DO UPDATE
		SET successfully_processed = m.successfully_processed + EXCLUDED.successfully_processed,
		    failed = m.failed + EXCLUDED.failed,
		    ignored = m.ignored + EXCLUDED.ignored,
		    retry_attempts = m.retry_attempts + EXCLUDED.retry_attempts,
		    average_processing_time = CASE
				WHEN EXCLUDED.successfully_processed > 0 AND $8::double precision > 0
				THEN (m.average_processing_time * m.successfully_processed + $8::double precision) / (m.successfully_processed + 1)
				ELSE m.average_processing_time
			END,
		    event_types = m.event_types || jsonb_build_object(
				$9::text, COALESCE((m.event_types ->> $9::text)::bigint, 0) + 1
			),
		    updated_at = NOW()
	`

	var processed, failed, ignored int
	switch o.Status {
	case domain.StatusProcessed:
		processed = 1
	case domain.StatusFailed:
		failed = 1
	case domain.StatusIgnored:
		ignored = 1
	default:
		return fmt.Errorf("increment outcome metric: status %q is not an outcome", o.Status)
	}

	sample := 0.0
	if processed == 1 && o.ProcessingMs > 0 {
		sample = o.ProcessingMs
	}

	eventType := o.EventType
	if eventType == "" {
		eventType = domain.EventTypeUnknown
	}

	_, err := r.pool.Exec(ctx, query,
		uuid.New(),
		o.ConfigID,
		o.Platform,
		o.Day,
		processed,
		failed,
		ignored,
		sample,
		eventType,
	)
	if err != nil {
		return fmt.Errorf("increment outcome metric: %w", err)
	}
	return nil
}

// ListDaily returns day rows for a config in [from, to], oldest first.
func (r *DeliveryMetricRepository) ListDaily(ctx context.Context, configID uuid.UUID, from, to time.Time) ([]*domain.DeliveryMetric, error) {
	query := `
		SELECT id, webhook_config_id, platform, date, total_received, successfully_processed,
		       failed, ignored, retry_attempts, average_processing_time, event_types, created_at, updated_at
		FROM webhook_delivery_metrics
		WHERE webhook_config_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, platform
	`

	rows, err := r.pool.Query(ctx, query, configID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list delivery metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*domain.DeliveryMetric
	for rows.Next() {
		var m domain.DeliveryMetric
		if err := rows.Scan(
			&m.ID,
			&m.WebhookConfigID,
			&m.Platform,
			&m.Date,
			&m.TotalReceived,
			&m.SuccessfullyProcessed,
			&m.Failed,
			&m.Ignored,
			&m.RetryAttempts,
			&m.AverageProcessingTime,
			&m.EventTypes,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery metric: %w", err)
		}
		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery metrics: %w", err)
	}

	return metrics, nil
}

// DeleteOlderThan removes day rows before cutoff.
func (r *DeliveryMetricRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM webhook_delivery_metrics WHERE date < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old delivery metrics: %w", err)
	}
	return result.RowsAffected(), nil
}
