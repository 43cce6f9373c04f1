package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one step of a request and logs its outcome when it ends.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan derives a child span from ctx. Log lines written through the
// returned context carry the trace id, span id and span name.
func StartSpan(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)
	parent := traceFrom(ctx)

	ids := traceIDs{traceID: parent.traceID, spanID: uuid.NewString()}
	if ids.traceID == "" {
		ids.traceID = uuid.NewString()
		logger = logger.With(slog.String("trace_id", ids.traceID))
	}

	logger = logger.With(
		slog.String("span_id", ids.spanID),
		slog.String("span_name", name),
	)
	if parent.spanID != "" {
		logger = logger.With(slog.String("parent_span_id", parent.spanID))
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	ctx = WithLogger(withTrace(ctx, ids), logger)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// Fail marks the span as failed; End then logs at error level with err.
func (s *Span) Fail(err error) {
	if s == nil || err == nil {
		return
	}
	s.err = err
}

// End emits the completion entry for the span.
func (s *Span) End() {
	if s == nil {
		return
	}
	duration := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Error("span failed", duration, slog.String("error", s.err.Error()))
		return
	}
	s.logger.Debug("span completed", duration)
}
