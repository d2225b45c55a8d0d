package web

import (
	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/auth"
)

// RegisterRoutes registers the HTML page routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	e.Use(SiteMiddleware(h.site))

	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login)
	e.POST("/logout", h.Logout)

	session := authMiddleware.RequireSession()
	e.GET("/annotate/text/:textid", h.Annotate, session)
	e.GET("/texts/upload", h.UploadForm, session)
	e.POST("/texts/upload", h.Upload, session)
	e.GET("/concepts/new", h.ConceptForm, session)
	e.POST("/concepts/new", h.SubmitConcept, session)
}
