package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
)

const maxImageSize = 5 << 20

// Handler handles HTTP requests for users
type Handler struct {
	svc  *Service
	auth *auth.Middleware
}

// NewHandler creates a new users handler
func NewHandler(svc *Service, authMiddleware *auth.Middleware) *Handler {
	return &Handler{svc: svc, auth: authMiddleware}
}

// Register creates an account
// POST /api/auth/register
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// Login returns a session token and sets the session cookie
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	h.auth.SetSessionCookie(c, resp.Token, resp.ExpiresAt)
	return c.JSON(http.StatusOK, resp)
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *Handler) Logout(c echo.Context) error {
	h.auth.ClearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user
// GET /api/users/me
func (h *Handler) Me(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	u, err := h.svc.Get(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe edits the authenticated user's profile
// PATCH /api/users/me
func (h *Handler) UpdateMe(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UploadImage replaces the authenticated user's profile image
// POST /api/users/me/image (multipart field "image")
func (h *Handler) UploadImage(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return apperror.NewBadRequest("multipart field 'image' is required")
	}
	if fh.Size > maxImageSize {
		return apperror.NewBadRequest("Image exceeds 5 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	defer f.Close()

	u, err := h.svc.SetImage(c.Request().Context(), user.ID, fh.Filename, f, fh.Size, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Get returns a user's public profile
// GET /api/users/:id
func (h *Handler) Get(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// List returns all users (admin only)
// GET /api/users?limit=&offset=
func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
