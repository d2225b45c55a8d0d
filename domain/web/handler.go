package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/domain/users"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
	"github.com/vogonweb/vogon/pkg/forms"
	"github.com/vogonweb/vogon/pkg/logger"
)

// TextStore is what the pages need from the texts service.
type TextStore interface {
	GetReadable(ctx context.Context, id, userID string) (*texts.Text, error)
	Projects(ctx context.Context, textID, userID string) ([]texts.ProjectRef, error)
	Create(ctx context.Context, userID string, req texts.CreateRequest) (*texts.Text, error)
}

// Handler serves the HTML pages
type Handler struct {
	site     SiteContext
	texts    TextStore
	concepts *concepts.Service
	users    *users.Service
	tokens   *auth.TokenIssuer
	auth     *auth.Middleware
	log      *slog.Logger
}

// NewHandler creates a new web handler
func NewHandler(
	site SiteContext,
	textSvc *texts.Service,
	conceptSvc *concepts.Service,
	userSvc *users.Service,
	tokens *auth.TokenIssuer,
	authMiddleware *auth.Middleware,
	log *slog.Logger,
) *Handler {
	return &Handler{
		site:     site,
		texts:    textSvc,
		concepts: conceptSvc,
		users:    userSvc,
		tokens:   tokens,
		auth:     authMiddleware,
		log:      log.With(logger.Scope("web")),
	}
}

// Forbidden renders the 403 page for userID. The status is always 403.
func Forbidden(c echo.Context, userID string) error {
	return render(c, http.StatusForbidden, ForbiddenPage(siteFrom(c), userID))
}

// NewForbiddenPage adapts Forbidden for the API error handler.
func NewForbiddenPage() apperror.PageRenderer {
	return func(c echo.Context) error {
		userID := ""
		if u := auth.GetUser(c); u != nil {
			userID = u.ID
		}
		return Forbidden(c, userID)
	}
}

func render(c echo.Context, status int, page g.Node) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return page.Render(c.Response())
}

// LoginForm handles GET /login
func (h *Handler) LoginForm(c echo.Context) error {
	return render(c, http.StatusOK, LoginPage(h.site, safeNext(c.QueryParam("next")), "", ""))
}

// Login handles POST /login
func (h *Handler) Login(c echo.Context) error {
	username := c.FormValue("username")
	next := safeNext(c.FormValue("next"))

	resp, err := h.users.Login(c.Request().Context(), users.LoginRequest{
		Username: username,
		Password: c.FormValue("password"),
	})
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			return render(c, http.StatusUnauthorized, LoginPage(h.site, next, username, "Invalid username or password."))
		}
		return err
	}
	h.auth.SetSessionCookie(c, resp.Token, resp.ExpiresAt)
	return c.Redirect(http.StatusSeeOther, next)
}

// Logout handles POST /logout
func (h *Handler) Logout(c echo.Context) error {
	h.auth.ClearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Annotate handles GET /annotate/text/:textid?project=
func (h *Handler) Annotate(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	ctx := c.Request().Context()

	t, err := h.texts.GetReadable(ctx, c.Param("textid"), user.ID)
	if err != nil {
		return err
	}
	projects, err := h.texts.Projects(ctx, t.ID, user.ID)
	if err != nil {
		return err
	}
	projectID := c.QueryParam("project")
	if projectID != "" && !containsProject(projects, projectID) {
		return Forbidden(c, user.ID)
	}

	token, exp, err := h.tokens.IssueAnnotator(auth.Identity{ID: user.ID, Username: user.Username, Admin: user.IsAdmin})
	if err != nil {
		return apperror.NewInternal("issue annotator token", err)
	}
	if projects == nil {
		projects = []texts.ProjectRef{}
	}

	return render(c, http.StatusOK, AnnotatePage(h.site, user, t, annotatorConfig{
		TextID:    t.ID,
		UserID:    user.ID,
		ProjectID: projectID,
		Token:     token,
		ExpiresAt: exp,
		APIBase:   h.site.URL("/api"),
		Projects:  projects,
	}))
}

func containsProject(projects []texts.ProjectRef, id string) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

// UploadForm handles GET /texts/upload
func (h *Handler) UploadForm(c echo.Context) error {
	return render(c, http.StatusOK, UploadPage(h.site, auth.GetUser(c), ""))
}

// Upload handles POST /texts/upload
func (h *Handler) Upload(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	values, err := c.FormParams()
	if err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if strings.TrimSpace(values.Get("title")) == "" || strings.TrimSpace(values.Get("content")) == "" {
		return render(c, http.StatusBadRequest, UploadPage(h.site, user, "Title and content are required."))
	}
	entries, err := forms.DisplayValues(uploadForm(values))
	if err != nil {
		return render(c, http.StatusBadRequest, UploadPage(h.site, user, "Please choose a valid visibility."))
	}

	public := values.Get("visibility") == "public"
	t, err := h.texts.Create(c.Request().Context(), user.ID, texts.CreateRequest{
		Title:   strings.TrimSpace(values.Get("title")),
		Content: values.Get("content"),
		URI:     strings.TrimSpace(values.Get("uri")),
		Public:  &public,
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			return render(c, appErr.HTTPStatus, UploadPage(h.site, user, appErr.Message))
		}
		return err
	}
	h.log.Info("text uploaded", slog.String("text_id", t.ID), slog.String("user_id", user.ID))

	return render(c, http.StatusCreated, ConfirmationPage(h.site, user, "Text uploaded", entries,
		A(Href(h.site.URL("/annotate/text/"+t.ID)), g.Text("Start annotating")),
	))
}

// ConceptForm handles GET /concepts/new
func (h *Handler) ConceptForm(c echo.Context) error {
	types, err := h.concepts.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, ConceptPage(h.site, auth.GetUser(c), typeChoices(types), ""))
}

// SubmitConcept handles POST /concepts/new
func (h *Handler) SubmitConcept(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}
	ctx := c.Request().Context()
	values, err := c.FormParams()
	if err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	types, err := h.concepts.ListTypes(ctx)
	if err != nil {
		return err
	}
	choices := typeChoices(types)

	if strings.TrimSpace(values.Get("label")) == "" {
		return render(c, http.StatusBadRequest, ConceptPage(h.site, user, choices, "A label is required."))
	}
	entries, err := forms.DisplayValues(conceptForm(values, choices))
	if err != nil {
		return render(c, http.StatusBadRequest, ConceptPage(h.site, user, choices, "Unknown concept type."))
	}

	concept, err := h.concepts.Create(ctx, user.ID, concepts.CreateRequest{
		URI:         strings.TrimSpace(values.Get("uri")),
		Label:       strings.TrimSpace(values.Get("label")),
		Description: strings.TrimSpace(values.Get("description")),
		TypeID:      optional(values, "type"),
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			return render(c, appErr.HTTPStatus, ConceptPage(h.site, user, choices, appErr.Message))
		}
		return err
	}

	return render(c, http.StatusCreated, ConfirmationPage(h.site, user, "Concept submitted", entries,
		g.Text(conceptStatus(concept)),
	))
}
