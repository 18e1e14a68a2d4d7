package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceKey
)

// Trace carries the identifiers tying log lines back to a single request.
type Trace struct {
	RequestID string
	TraceID   string
	SpanID    string
}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithTrace stores the trace identifiers on the context.
func WithTrace(ctx context.Context, trace Trace) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, traceKey, trace)
}

// TraceFromContext retrieves previously stored trace identifiers. The zero
// value is returned when no trace has been started.
func TraceFromContext(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}
	if trace, ok := ctx.Value(traceKey).(Trace); ok {
		return trace
	}
	return Trace{}
}
