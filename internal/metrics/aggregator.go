package metrics

import (
	"time"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// Summary aggregates daily delivery rows over a date range.
type Summary struct {
	From                  time.Time        `json:"from"`
	To                    time.Time        `json:"to"`
	Days                  int              `json:"days"`
	TotalReceived         int64            `json:"total_received"`
	SuccessfullyProcessed int64            `json:"successfully_processed"`
	Failed                int64            `json:"failed"`
	Ignored               int64            `json:"ignored"`
	RetryAttempts         int64            `json:"retry_attempts"`
	AverageProcessingTime float64          `json:"average_processing_time"`
	SuccessRate           float64          `json:"success_rate"`
	EventTypes            map[string]int64 `json:"event_types"`
}

// Summarize folds day rows into one Summary. The average processing time is
// weighted by each day's processed count, which reproduces the mean a single
// row would have held.
func Summarize(rows []*domain.DeliveryMetric) *Summary {
	s := &Summary{EventTypes: make(map[string]int64)}

	var weighted float64
	for _, m := range rows {
		s.Days++
		s.TotalReceived += m.TotalReceived
		s.SuccessfullyProcessed += m.SuccessfullyProcessed
		s.Failed += m.Failed
		s.Ignored += m.Ignored
		s.RetryAttempts += m.RetryAttempts
		weighted += m.AverageProcessingTime * float64(m.SuccessfullyProcessed)

		for eventType, n := range m.EventTypes {
			s.EventTypes[eventType] += n
		}
	}

	if s.SuccessfullyProcessed > 0 {
		s.AverageProcessingTime = weighted / float64(s.SuccessfullyProcessed)
	}
	if s.TotalReceived > 0 {
		s.SuccessRate = float64(s.SuccessfullyProcessed) / float64(s.TotalReceived) * 100
	}

	return s
}
