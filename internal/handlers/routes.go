package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/vidfriends/vidvault/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts AccountService
	Videos   VideoService
	DB       Pinger
	Limiter  echomw.RateLimiterStore
	Logger   *slog.Logger
}

// NewRouter builds the echo instance serving every route.
func NewRouter(deps Dependencies) *echo.Echo {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HandleHTTPError
	e.Use(middleware.RequestLogger(logger))

	RegisterRoutes(e, deps)
	return e
}

// RegisterRoutes wires HTTP handlers into the provided echo instance.
func RegisterRoutes(e *echo.Echo, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	auth := AuthHandler{Accounts: deps.Accounts}
	videos := VideoHandler{Videos: deps.Videos}

	e.GET("/healthz", health.Handle)

	e.POST("/auth/register", auth.Register, middleware.RateLimit(deps.Limiter, "register"))
	e.POST("/auth/login", auth.Login, middleware.RateLimit(deps.Limiter, "login"))
	e.POST("/auth/refresh", auth.Refresh)
	e.GET("/auth/email/:token", auth.VerifyEmail)
	e.PUT("/user/:id", auth.UpdateProfile)

	e.POST("/video", videos.Create)
	e.GET("/video/user/:userId", videos.ListByUser)
	e.GET("/video/:id", videos.Get)
	e.DELETE("/video/:id", videos.Delete)
}
