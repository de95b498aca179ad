package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
)

func TestEngine_Evaluate(t *testing.T) {
	engine, err := NewEngine(DefaultRules(Thresholds{FailureRate: 20, AvgProcessingMs: 500, MinReceived: 10}))
	require.NoError(t, err)

	tests := []struct {
		name      string
		summary   *metrics.Summary
		wantRules []string
	}{
		{
			name:      "healthy",
			summary:   &metrics.Summary{TotalReceived: 100, SuccessfullyProcessed: 95, Failed: 5, AverageProcessingTime: 40},
			wantRules: nil,
		},
		{
			name:      "failure rate at threshold",
			summary:   &metrics.Summary{TotalReceived: 50, SuccessfullyProcessed: 40, Failed: 10, AverageProcessingTime: 40},
			wantRules: []string{"high_failure_rate"},
		},
		{
			name:      "slow and failing",
			summary:   &metrics.Summary{TotalReceived: 10, Failed: 9, SuccessfullyProcessed: 1, AverageProcessingTime: 900},
			wantRules: []string{"high_failure_rate", "slow_processing"},
		},
		{
			name:      "below minimum volume",
			summary:   &metrics.Summary{TotalReceived: 9, Failed: 9},
			wantRules: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range engine.Evaluate(tt.summary) {
				got = append(got, f.Rule.Name)
			}
			assert.Equal(t, tt.wantRules, got)
		})
	}
}

func TestEngine_FiredValue(t *testing.T) {
	engine, err := NewEngine(DefaultRules(Thresholds{FailureRate: 20}))
	require.NoError(t, err)

	fired := engine.Evaluate(&metrics.Summary{TotalReceived: 4, Failed: 1})
	require.Len(t, fired, 1)
	assert.InDelta(t, 25.0, fired[0].Value, 0.001)
	assert.Equal(t, SeverityCritical, fired[0].Rule.Severity)
}

func TestNewEngine_RejectsInvalidRules(t *testing.T) {
	_, err := NewEngine([]Rule{{Name: "x", Metric: MetricFailed, Operator: "between"}})
	assert.Error(t, err)

	_, err = NewEngine([]Rule{{Name: "x", Metric: "latency_p99", Operator: "gt"}})
	assert.Error(t, err)

	_, err = NewEngine([]Rule{{Metric: MetricFailed, Operator: "gt"}})
	assert.Error(t, err)
}

func TestEvaluateCondition(t *testing.T) {
	e := &Engine{}

	tests := []struct {
		operator  string
		value     float64
		threshold float64
		want      bool
	}{
		{"gt", 85, 80, true},
		{"gt", 80, 80, false},
		{"gte", 80, 80, true},
		{"lt", 75, 80, true},
		{"lte", 80, 80, true},
		{"eq", 80, 80, true},
		{"ne", 80, 80, false},
		{"invalid", 85, 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			assert.Equal(t, tt.want, e.evaluateCondition(tt.operator, tt.value, tt.threshold))
		})
	}
}
