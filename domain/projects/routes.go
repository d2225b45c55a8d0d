package projects

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the projects routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	g.GET("/:id/texts", h.Texts)
	g.POST("/:id/texts/:textId", h.AddText)
	g.DELETE("/:id/texts/:textId", h.RemoveText)

	g.POST("/:id/participants/:userId", h.AddParticipant)
	g.DELETE("/:id/participants/:userId", h.RemoveParticipant)
}
