package relations

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the relation set routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	e.POST("/api/templates/:id/create", h.Instantiate, authMiddleware.RequireAuth())

	g := e.Group("/api/relationsets")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/submit", h.Submit)
}
