package health

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers health check, metrics and task statistics routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/ready", h.Ready)
	e.GET("/metrics", h.Metrics)
	e.GET("/api/health", h.Health)

	g := e.Group("/api/tasks")
	g.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
	g.GET("/stats", h.TaskStats)
}
