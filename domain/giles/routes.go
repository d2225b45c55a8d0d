package giles

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the Giles routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/giles")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/token", h.Token)
	g.POST("/token", h.ExchangeToken)
	g.GET("/uploads", h.Uploads)
	g.POST("/uploads/:id/import", h.Import)
}
