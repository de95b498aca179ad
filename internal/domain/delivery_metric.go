package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryMetric aggregates webhook outcomes per config, platform and UTC day.
type DeliveryMetric struct {
	ID                    uuid.UUID        `json:"id"`
	WebhookConfigID       uuid.UUID        `json:"webhook_config_id"`
	Platform              Platform         `json:"platform"`
	Date                  time.Time        `json:"date"`
	TotalReceived         int64            `json:"total_received"`
	SuccessfullyProcessed int64            `json:"successfully_processed"`
	Failed                int64            `json:"failed"`
	Ignored               int64            `json:"ignored"`
	RetryAttempts         int64            `json:"retry_attempts"`
	AverageProcessingTime float64          `json:"average_processing_time"`
	EventTypes            map[string]int64 `json:"event_types"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// SuccessRate returns processed/received as a percentage.
func (m *DeliveryMetric) SuccessRate() float64 {
	if m.TotalReceived == 0 {
		return 0
	}
	return float64(m.SuccessfullyProcessed) / float64(m.TotalReceived) * 100
}

// RunningMean folds sample into a mean over n samples (n counts the new sample).
func RunningMean(oldAvg float64, n int64, sample float64) float64 {
	if n <= 1 {
		return sample
	}
	return (oldAvg*float64(n-1) + sample) / float64(n)
}

// MetricDay truncates t to the UTC calendar day used as the metric row key.
func MetricDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
