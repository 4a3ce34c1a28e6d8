package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/bearer-auth-api/internal/handler"
	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/middleware"
)

// New returns an Echo instance with the shared middleware stack: request
// id, access log and panic recovery.
func New(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// health checks, metrics and the API document.
func RegisterRoutes(e *echo.Echo, reg *prometheus.Registry, deps ...handler.Pinger) {
	health := handler.Health(deps...)
	e.GET("/healthz", health)
	e.GET("/up", health)
	e.GET("/api-docs.json", handler.APIDocs)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
	}
}

// RegisterAuth registers the auth API under /api/v1/auth.  Protected
// routes run the guard first.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard middleware.Authenticator) {
	g := e.Group("/api/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot_password", a.ForgotPassword)
	g.POST("/reset_password", a.ResetPassword)
	g.GET("/reset_password/validate", a.ValidateResetToken)

	requireAuth := middleware.JWTAuth(guard, a.Logger)
	g.DELETE("/logout", a.Logout, requireAuth)
	g.DELETE("/sessions/current", a.RevokeCurrent, requireAuth)
	g.GET("/me", a.Me, requireAuth)
}
