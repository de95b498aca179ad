package alert

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
)

var operators = map[string]bool{"gt": true, "gte": true, "lt": true, "lte": true, "eq": true, "ne": true}

// Thresholds configures the default rule set.
type Thresholds struct {
	FailureRate     float64
	AvgProcessingMs float64
	MinReceived     int64
}

// DefaultRules watches the failure rate and the processing latency.
func DefaultRules(t Thresholds) []Rule {
	rules := []Rule{
		{
			Name:        "high_failure_rate",
			Metric:      MetricFailureRate,
			Operator:    "gte",
			Threshold:   t.FailureRate,
			MinReceived: t.MinReceived,
			Severity:    SeverityCritical,
		},
	}
	if t.AvgProcessingMs > 0 {
		rules = append(rules, Rule{
			Name:        "slow_processing",
			Metric:      MetricAvgProcessingMs,
			Operator:    "gt",
			Threshold:   t.AvgProcessingMs,
			MinReceived: t.MinReceived,
			Severity:    SeverityWarning,
		})
	}
	return rules
}

type Engine struct {
	rules []Rule
}

func NewEngine(rules []Rule) (*Engine, error) {
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New("alert rule without name")
		}
		if !operators[r.Operator] {
			return nil, fmt.Errorf("alert rule %s: unknown operator %q", r.Name, r.Operator)
		}
		if _, ok := metricValue(&metrics.Summary{}, r.Metric); !ok {
			return nil, fmt.Errorf("alert rule %s: unknown metric %q", r.Name, r.Metric)
		}
	}
	return &Engine{rules: rules}, nil
}

func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate returns the rules that fire for s along with the observed value.
func (e *Engine) Evaluate(s *metrics.Summary) []Fired {
	var fired []Fired
	for _, r := range e.rules {
		if s.TotalReceived < r.MinReceived {
			continue
		}
		value, _ := metricValue(s, r.Metric)
		if e.evaluateCondition(r.Operator, value, r.Threshold) {
			fired = append(fired, Fired{Rule: r, Value: value})
		}
	}
	return fired
}

// Fired pairs a rule with the value that tripped it.
type Fired struct {
	Rule  Rule
	Value float64
}

func metricValue(s *metrics.Summary, m Metric) (float64, bool) {
	switch m {
	case MetricFailureRate:
		if s.TotalReceived == 0 {
			return 0, true
		}
		return float64(s.Failed) / float64(s.TotalReceived) * 100, true
	case MetricSuccessRate:
		return s.SuccessRate, true
	case MetricFailed:
		return float64(s.Failed), true
	case MetricRetryAttempts:
		return float64(s.RetryAttempts), true
	case MetricAvgProcessingMs:
		return s.AverageProcessingTime, true
	default:
		return 0, false
	}
}

func (e *Engine) evaluateCondition(operator string, value, threshold float64) bool {
	switch operator {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	case "eq":
		return value == threshold
	case "ne":
		return value != threshold
	default:
		return false
	}
}
