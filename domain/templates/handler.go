package templates

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// maxImportSize bounds YAML import documents.
const maxImportSize = 1 << 20

// Handler handles HTTP requests for relation templates
type Handler struct {
	svc *Service
}

// NewHandler creates a new templates handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/templates?search=
func (h *Handler) List(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/templates/:id
func (h *Handler) Get(c echo.Context) error {
	t, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Create handles POST /api/templates
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.svc.Create(c.Request().Context(), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Import handles POST /api/templates/import with a YAML body
func (h *Handler) Import(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportSize+1))
	if err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if len(body) > maxImportSize {
		return apperror.NewBadRequest("Import document too large")
	}
	resp, err := h.svc.Import(c.Request().Context(), user.ID, body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Delete handles DELETE /api/templates/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
