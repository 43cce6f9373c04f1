package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/logging"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(c echo.Context) error {
	payload := map[string]string{"status": "ok"}

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := h.DB.Ping(ctx); err != nil {
			logging.FromContext(ctx).Warn("database ping failed", "error", err)
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, payload)
		}
		payload["database"] = "ok"
	}

	return c.JSON(http.StatusOK, payload)
}
