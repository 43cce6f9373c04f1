package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/logging"
)

// RequestLogger attaches a request-scoped logger and request id to every request,
// recovers panics, and logs the outcome once the response has been written.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			reqLogger := base.With(
				slog.String("request_id", requestID),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("remote_ip", c.RealIP()),
			)

			ctx := logging.WithLogger(req.Context(), reqLogger)
			ctx = logging.WithRequestID(ctx, requestID)
			c.SetRequest(req.WithContext(ctx))

			defer func() {
				if rec := recover(); rec != nil {
					reqLogger.Error("panic recovered", "panic", rec)
					err = echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("panic: %v", rec))
				}
				if err != nil {
					c.Error(err)
					err = nil
				}

				status := c.Response().Status
				level := slog.LevelInfo
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				}
				reqLogger.Log(ctx, level, "request completed",
					slog.Int("status", status),
					slog.Duration("duration", time.Since(start)),
				)
			}()

			return next(c)
		}
	}
}
