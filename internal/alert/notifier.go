package alert

import (
	"context"
	"log/slog"
)

// Notifier delivers a fired alert.
type Notifier interface {
	Notify(ctx context.Context, a *Alert) error
}

// LogNotifier writes alerts to the structured log at a level matching
// their severity.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, a *Alert) error {
	level := slog.LevelInfo
	switch a.Rule.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}

	n.logger.Log(ctx, level, "delivery alert triggered",
		"alert_id", a.ID,
		"rule", a.Rule.Name,
		"severity", a.Rule.Severity,
		"metric", a.Rule.Metric,
		"value", a.Value,
		"threshold", a.Rule.Threshold,
		"received", a.Received,
		"config_id", a.ConfigID,
		"platform", a.Platform,
	)
	return nil
}
