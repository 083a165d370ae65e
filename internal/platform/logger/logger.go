// Package logger provides structured logging for the application using the
// standard library log/slog package, plus helpers for carrying a
// request-scoped logger through a context.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Setup initializes the application's logging system from the configured log
// level. It creates a JSON logger writing to stdout, sets it as the process
// default, and returns it.
func Setup(level string) (*slog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parsed,
	})

	log := slog.New(handler)
	slog.SetDefault(log)

	return log, nil
}

// ParseLevel converts a configured level name into a slog.Level.
// Matching is case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
