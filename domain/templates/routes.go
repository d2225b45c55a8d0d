package templates

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the relation template routes. Instantiation
// (POST /api/templates/:id/create) is registered by the relations domain.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/templates")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create, authMiddleware.RequireAdmin())
	g.POST("/import", h.Import, authMiddleware.RequireAdmin())
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete, authMiddleware.RequireAdmin())
}
