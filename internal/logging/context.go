// Package logging carries a request-scoped slog.Logger and trace identifiers through context.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	userIDKey
	traceKey
)

type traceIDs struct {
	traceID string
	spanID  string
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

// WithRequestID stores a request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithUserID records the authenticated caller and tags the context logger with it.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	return WithLogger(ctx, FromContext(ctx).With(slog.String("user_id", userID)))
}

// UserIDFromContext returns the authenticated caller, if any.
func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

// TraceIDFromContext retrieves the trace identifier from the context.
func TraceIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).traceID
}

// SpanIDFromContext retrieves the current span identifier from the context.
func SpanIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).spanID
}

func withTrace(ctx context.Context, ids traceIDs) context.Context {
	return context.WithValue(ctx, traceKey, ids)
}

func traceFrom(ctx context.Context) traceIDs {
	if ctx == nil {
		return traceIDs{}
	}
	ids, _ := ctx.Value(traceKey).(traceIDs)
	return ids
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
