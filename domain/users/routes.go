package users

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the auth and users routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	a := e.Group("/api/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)

	g := e.Group("/api/users")
	g.Use(authMiddleware.RequireAuth())
	g.GET("/me", h.Me)
	g.PATCH("/me", h.UpdateMe)
	g.POST("/me/image", h.UploadImage)
	g.GET("/:id", h.Get)
	g.GET("", h.List, authMiddleware.RequireAdmin())
}
