package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestWithUserIDTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithUserID(ctx, "user-1")

	assert.Equal(t, "user-1", UserIDFromContext(ctx))
	FromContext(ctx).Info("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "user-1", lines[0]["user_id"])
}

func TestStartSpanNestsUnderOneTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), logger)

	ctx, outer := StartSpan(ctx, "videos.create", "videoId", "vid-1")
	traceID := TraceIDFromContext(ctx)
	outerID := SpanIDFromContext(ctx)
	require.NotEmpty(t, traceID)

	inner, span := StartSpan(ctx, "videos.transcode")
	assert.Equal(t, traceID, TraceIDFromContext(inner))
	assert.NotEqual(t, outerID, SpanIDFromContext(inner))
	span.End()
	outer.End()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "videos.transcode", lines[0]["span_name"])
	assert.Equal(t, outerID, lines[0]["parent_span_id"])
	assert.Equal(t, traceID, lines[0]["trace_id"])
	assert.Equal(t, "vid-1", lines[1]["videoId"])
}

func TestSpanFailLogsError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	_, span := StartSpan(ctx, "videos.upload")
	span.Fail(errors.New("s3 unavailable"))
	span.End()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "s3 unavailable", lines[0]["error"])

	var nilSpan *Span
	nilSpan.Fail(errors.New("ignored"))
	nilSpan.End()
}
