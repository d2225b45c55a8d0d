package repositories

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the repositories routes. Listing a repository's
// texts lives in the texts package.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/repositories")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update, authMiddleware.RequireAdmin())
	g.DELETE("/:id", h.Delete, authMiddleware.RequireAdmin())
}
