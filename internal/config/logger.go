package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const serviceName = "socialhook"

// ParseLogLevel maps LOG_LEVEL values to slog levels. Empty means the
// environment default.
func ParseLogLevel(s string) (slog.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	}
	return 0, false, fmt.Errorf("unknown LOG_LEVEL %q", s)
}

// NewLogger builds the process logger. Production writes JSON at info,
// everything else writes text at debug; LogLevel overrides either. Every
// record carries the service name and environment.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: c.IsDevelopment(),
		Level:     slog.LevelDebug,
	}
	if c.IsProduction() {
		opts.Level = slog.LevelInfo
	}
	// Load already rejected unknown values.
	if lvl, ok, _ := ParseLogLevel(c.LogLevel); ok {
		opts.Level = lvl
	}

	var handler slog.Handler
	if c.IsProduction() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("env", c.Environment),
	)
}
