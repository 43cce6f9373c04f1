package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/vidvault/internal/config"
	"github.com/vidfriends/vidvault/internal/logging"
)

func TestKeyedLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewKeyedLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 2}, time.Hour)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow("login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := limiter.Allow("login:1.2.3.4")
	assert.False(t, ok)

	ok, _ = limiter.Allow("login:5.6.7.8")
	assert.True(t, ok, "other keys keep their own budget")

	now = now.Add(time.Minute)
	ok, _ = limiter.Allow("login:1.2.3.4")
	assert.True(t, ok, "budget refills after the window")
}

func TestKeyedLimiterForgetsIdleKeys(t *testing.T) {
	limiter := NewKeyedLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}, time.Minute)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	_, _ = limiter.Allow("a")
	now = now.Add(2 * time.Minute)
	_, _ = limiter.Allow("b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.buckets, "a")
	assert.Contains(t, limiter.buckets, "b")
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	e := echo.New()
	store := NewKeyedLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}, time.Hour)
	e.POST("/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(store, "login"))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimitWithNilStoreIsPassThrough(t *testing.T) {
	called := false
	handler := RateLimit(nil, "login")(func(c echo.Context) error {
		called = true
		return nil
	})

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.NoError(t, handler(c))
	assert.True(t, called)
}

func TestRequestLoggerAttachesContextAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))

	var requestID string
	e.GET("/video/:id", func(c echo.Context) error {
		requestID = logging.RequestIDFromContext(c.Request().Context())
		return echo.NewHTTPError(http.StatusNotFound, "video not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/video/abc", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-42", requestID)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/boom", func(c echo.Context) error {
		panic(errors.New("boom"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), "panic recovered")
}
