package appellations

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for appellations
type Handler struct {
	svc *Service
}

// NewHandler creates a new appellations handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/appellations
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
	a, err := h.svc.Create(c.Request().Context(), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

// List handles GET /api/appellations?text=&project=&concept=&user=&predicate=
func (h *Handler) List(c echo.Context) error {
	resp, err := h.svc.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func filterFromQuery(c echo.Context) ListFilter {
	f := ListFilter{
		TextID:    c.QueryParam("text"),
		ProjectID: c.QueryParam("project"),
		ConceptID: c.QueryParam("concept"),
		UserID:    c.QueryParam("user"),
	}
	if p, err := strconv.ParseBool(c.QueryParam("predicate")); err == nil {
		f.Predicate = &p
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return f
}

// Get handles GET /api/appellations/:id
func (h *Handler) Get(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /api/appellations/:id
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
