package concepts

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the concept and concept type routes.
// Curation (state changes, merges, deletes) is restricted to admins.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	types := e.Group("/api/concepttypes")
	types.Use(authMiddleware.RequireAuth())
	types.GET("", h.ListTypes)
	types.POST("", h.CreateType, authMiddleware.RequireAdmin())

	g := e.Group("/api/concepts")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update, authMiddleware.RequireAdmin())
	g.DELETE("/:id", h.Delete, authMiddleware.RequireAdmin())

	g.POST("/:id/approve", h.Approve, authMiddleware.RequireAdmin())
	g.POST("/:id/reject", h.Reject, authMiddleware.RequireAdmin())
	g.POST("/:id/resolve", h.Resolve, authMiddleware.RequireAdmin())
	g.POST("/:id/merge", h.Merge, authMiddleware.RequireAdmin())
}
