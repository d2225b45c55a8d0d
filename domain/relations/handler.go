package relations

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for relation sets
type Handler struct {
	svc *Service
}

// NewHandler creates a new relations handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Instantiate handles POST /api/templates/:id/create
func (h *Handler) Instantiate(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req InstantiateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	set, err := h.svc.Instantiate(c.Request().Context(), c.Param("id"), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, set)
}

// List handles GET /api/relationsets?text=&project=&user=&status=
func (h *Handler) List(c echo.Context) error {
	f := ListFilter{
		TextID:    c.QueryParam("text"),
		ProjectID: c.QueryParam("project"),
		UserID:    c.QueryParam("user"),
		Status:    c.QueryParam("status"),
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/relationsets/:id
func (h *Handler) Get(c echo.Context) error {
	set, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}

// Submit handles POST /api/relationsets/:id/submit
func (h *Handler) Submit(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	set, err := h.svc.Submit(c.Request().Context(), c.Param("id"), user.ID, user.IsAdmin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}

// Delete handles DELETE /api/relationsets/:id
func (h *Handler) Delete(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), user.ID, user.IsAdmin); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
