package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Metric names a value derived from a config's delivery summary.
type Metric string

const (
	MetricFailureRate     Metric = "failure_rate"
	MetricSuccessRate     Metric = "success_rate"
	MetricFailed          Metric = "failed"
	MetricRetryAttempts   Metric = "retry_attempts"
	MetricAvgProcessingMs Metric = "avg_processing_ms"
)

// Rule fires when Metric compares true against Threshold. Rules with
// MinReceived skip configs that saw fewer deliveries over the window.
type Rule struct {
	Name        string   `json:"name"`
	Metric      Metric   `json:"metric"`
	Operator    string   `json:"operator"`
	Threshold   float64  `json:"threshold"`
	MinReceived int64    `json:"min_received"`
	Severity    Severity `json:"severity"`
}

// Alert is one rule firing for one webhook config.
type Alert struct {
	ID          uuid.UUID       `json:"id"`
	Rule        Rule            `json:"rule"`
	ConfigID    uuid.UUID       `json:"webhook_config_id"`
	Platform    domain.Platform `json:"platform"`
	Value       float64         `json:"value"`
	Received    int64           `json:"received"`
	TriggeredAt time.Time       `json:"triggered_at"`
}
