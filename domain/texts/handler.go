package texts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

// Handler handles HTTP requests for texts
type Handler struct {
	svc *Service
}

// NewHandler creates a new texts handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create uploads a plain text
// POST /api/texts
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

// List handles GET /api/texts?repository=&project=&part_of=&search=&limit=&offset=
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	f := filterFromQuery(c)
	f.UserID = user.ID

	resp, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// ListByRepository handles GET /api/repositories/:id/texts
func (h *Handler) ListByRepository(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	f := filterFromQuery(c)
	f.RepositoryID = c.Param("id")
	f.UserID = user.ID

	resp, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func filterFromQuery(c echo.Context) ListFilter {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return ListFilter{
		RepositoryID: c.QueryParam("repository"),
		ProjectID:    c.QueryParam("project"),
		PartOfID:     c.QueryParam("part_of"),
		Search:       c.QueryParam("search"),
		Limit:        limit,
		Offset:       offset,
	}
}

// Get returns a text with its content
// GET /api/texts/:id
func (h *Handler) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	t, err := h.svc.GetReadable(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TextDetail{
		Text:             t,
		TokenizedContent: t.TokenizedContent,
		OriginalContent:  t.OriginalContent,
	})
}

// Update handles PATCH /api/texts/:id
func (h *Handler) Update(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	// "" detaches the text and is not a uuid
	v := req
	if v.PartOfID != nil && *v.PartOfID == "" {
		v.PartOfID = nil
	}
	if err := c.Validate(&v); err != nil {
		return err
	}

	t, err := h.svc.Update(c.Request().Context(), c.Param("id"), user.ID, user.IsAdmin, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Parts handles GET /api/texts/:id/parts
func (h *Handler) Parts(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	resp, err := h.svc.Children(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/texts/:id
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
