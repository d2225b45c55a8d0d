package projects

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for projects
type Handler struct {
	svc *Service
}

// NewHandler creates a new projects handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/projects?mine=true&limit=
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	mine := c.QueryParam("mine") == "true"

	out, err := h.svc.List(c.Request().Context(), user.ID, mine, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/projects/:id
func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create handles POST /api/projects
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), req, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Update handles PATCH /api/projects/:id
func (h *Handler) Update(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), c.Param("id"), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/projects/:id
func (h *Handler) Delete(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Texts handles GET /api/projects/:id/texts
func (h *Handler) Texts(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.svc.Texts(c.Request().Context(), c.Param("id"), user.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// AddText handles POST /api/projects/:id/texts/:textId
func (h *Handler) AddText(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.AddText(c.Request().Context(), c.Param("id"), c.Param("textId"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveText handles DELETE /api/projects/:id/texts/:textId
func (h *Handler) RemoveText(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.RemoveText(c.Request().Context(), c.Param("id"), c.Param("textId"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddParticipant handles POST /api/projects/:id/participants/:userId
func (h *Handler) AddParticipant(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.AddParticipant(c.Request().Context(), c.Param("id"), c.Param("userId"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveParticipant handles DELETE /api/projects/:id/participants/:userId
func (h *Handler) RemoveParticipant(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	if err := h.svc.RemoveParticipant(c.Request().Context(), c.Param("id"), c.Param("userId"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
