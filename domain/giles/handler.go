package giles

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for the Giles integration
type Handler struct {
	svc *Service
}

// NewHandler creates a new giles handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Token handles GET /api/giles/token
func (h *Handler) Token(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	status, err := h.svc.Status(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// ExchangeToken handles POST /api/giles/token
func (h *Handler) ExchangeToken(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req ExchangeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	status, err := h.svc.ExchangeToken(c.Request().Context(), user.ID, req.ProviderToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// Uploads handles GET /api/giles/uploads
func (h *Handler) Uploads(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	uploads, err := h.svc.Uploads(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploads)
}

// Import handles POST /api/giles/uploads/:id/import
func (h *Handler) Import(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	id, err := h.svc.EnqueueImport(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, EnqueueResponse{TaskID: id})
}
