package concepts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for concepts
type Handler struct {
	svc *Service
}

// NewHandler creates a new concepts handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListTypes handles GET /api/concepttypes
func (h *Handler) ListTypes(c echo.Context) error {
	out, err := h.svc.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// CreateType handles POST /api/concepttypes
func (h *Handler) CreateType(c echo.Context) error {
	var req CreateTypeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.svc.CreateType(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /api/concepts?state=&type=&search=&pending=true&limit=&offset=
func (h *Handler) List(c echo.Context) error {
	resp, err := h.svc.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func filterFromQuery(c echo.Context) ListFilter {
	f := ListFilter{
		State:  c.QueryParam("state"),
		TypeID: c.QueryParam("type"),
		Search: c.QueryParam("search"),
	}
	if c.QueryParam("pending") == "true" {
		f.State = StatePending
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return f
}

// Create handles POST /api/concepts
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
	concept, err := h.svc.Create(c.Request().Context(), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, concept)
}

// Get handles GET /api/concepts/:id
func (h *Handler) Get(c echo.Context) error {
	d, err := h.svc.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Update handles PATCH /api/concepts/:id
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	concept, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}

// Delete handles DELETE /api/concepts/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve handles POST /api/concepts/:id/approve
func (h *Handler) Approve(c echo.Context) error {
	return h.transition(c, ActionApprove, "")
}

// Reject handles POST /api/concepts/:id/reject
func (h *Handler) Reject(c echo.Context) error {
	return h.transition(c, ActionReject, "")
}

// Resolve handles POST /api/concepts/:id/resolve
func (h *Handler) Resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.transition(c, ActionResolve, req.Authority)
}

func (h *Handler) transition(c echo.Context, action Action, authority string) error {
	concept, err := h.svc.Transition(c.Request().Context(), c.Param("id"), action, authority)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}

// Merge handles POST /api/concepts/:id/merge
func (h *Handler) Merge(c echo.Context) error {
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	d, err := h.svc.Merge(c.Request().Context(), c.Param("id"), req.Target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
