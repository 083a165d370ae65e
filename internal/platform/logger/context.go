package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type so no other package can collide with the
// logger's context entry.
type contextKey struct{}

// WithLogger returns a context carrying the given logger. Handlers attach a
// request-scoped logger (with trace ID and caller attributes) so deeper
// layers log with the same correlation fields.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext retrieves the logger carried by the context, or the process
// default logger if the context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger carried by the context, falling
// back to the provided logger instead of the process default.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
