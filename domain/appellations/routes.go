package appellations

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the appellations routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/appellations")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}
