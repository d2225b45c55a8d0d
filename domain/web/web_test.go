package web

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/auth"
	"github.com/vogonweb/vogon/pkg/forms"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMETextHTML)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestNewSiteContext(t *testing.T) {
	site := NewSiteContext(&config.Config{Site: config.SiteConfig{
		AnalyticsID: "G-42",
		Version:     "1.2.3",
		BaseURL:     "https://vogon.example.org/",
	}})
	assert.Equal(t, "G-42", site.AnalyticsID)
	assert.Equal(t, "1.2.3", site.Version)
	assert.Equal(t, "https://vogon.example.org/annotate/text/1", site.URL("/annotate/text/1"))

	site = NewSiteContext(&config.Config{})
	assert.NotEmpty(t, site.Version)
}

func TestForbidden(t *testing.T) {
	tests := []struct {
		name   string
		userID string
	}{
		{"signed in", "u-42"},
		{"anonymous", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/annotate/text/1")
			require.NoError(t, Forbidden(c, tt.userID))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
			assert.Contains(t, rec.Body.String(), "403 Forbidden")
			if tt.userID != "" {
				assert.Contains(t, rec.Body.String(), tt.userID)
			}
		})
	}
}

func TestForbiddenPage_FromErrorHandler(t *testing.T) {
	handler := apperror.HTTPErrorHandler(slog.Default(), apperror.WithForbiddenPage(NewForbiddenPage()))

	c, rec := newContext(http.MethodGet, "/annotate/text/1")
	auth.SetUser(c, &auth.AuthUser{ID: "u-7"})
	handler(apperror.NewForbidden("nope"), c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "u-7")
}

func TestSiteMiddleware(t *testing.T) {
	site := SiteContext{Version: "9.9", BaseURL: "https://v.example"}
	c, rec := newContext(http.MethodGet, "/x")

	h := SiteMiddleware(site)(func(c echo.Context) error {
		return Forbidden(c, "")
	})
	require.NoError(t, h(c))
	assert.Contains(t, rec.Body.String(), "9.9")
	assert.Contains(t, rec.Body.String(), "https://v.example/static/styles.css")
}

func TestLayout_Analytics(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Layout(SiteContext{AnalyticsID: "G-1"}, PageConfig{Title: "Home"}).Render(&b))
	assert.Contains(t, b.String(), "gtag/js?id=G-1")
	assert.Contains(t, b.String(), "<title>Home | Vogon</title>")

	b.Reset()
	require.NoError(t, Layout(SiteContext{}, PageConfig{}).Render(&b))
	assert.NotContains(t, b.String(), "gtag")
	assert.Contains(t, b.String(), "Log in")
}

func TestLoginForm(t *testing.T) {
	h := &Handler{site: SiteContext{BaseURL: "https://v.example"}}
	c, rec := newContext(http.MethodGet, "/login?next=//evil.example")
	require.NoError(t, h.LoginForm(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)
	assert.Contains(t, rec.Body.String(), `name="next" value="/"`)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/annotate/text/1":     "/annotate/text/1",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"https://evil.example": "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestAnnotatePage(t *testing.T) {
	text := &texts.Text{ID: "t-1", Title: "Hitchhiker's Guide", TokenizedContent: texts.Tokenize("Don't <panic>")}
	user := &auth.AuthUser{ID: "u-1", Username: "arthur"}

	var b strings.Builder
	err := AnnotatePage(SiteContext{BaseURL: "https://v.example"}, user, text, annotatorConfig{
		TextID:    "t-1",
		UserID:    "u-1",
		Token:     "jwt-token",
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		APIBase:   "https://v.example/api",
		Projects:  []texts.ProjectRef{{ID: "p-1", Name: "Heart of Gold"}},
	}).Render(&b)
	require.NoError(t, err)

	out := b.String()
	assert.Contains(t, out, `<word id="2">&lt;panic&gt;</word>`)
	assert.Contains(t, out, `"token":"jwt-token"`)
	assert.Contains(t, out, "Heart of Gold")
	assert.Contains(t, out, `data-user-id="u-1"`)
}

func TestUploadForm_DisplayValues(t *testing.T) {
	values := url.Values{
		"title":      {"Mostly Harmless"},
		"uri":        {""},
		"visibility": {"public"},
		"content":    {"ignored in the summary"},
	}
	entries, err := forms.DisplayValues(uploadForm(values))
	require.NoError(t, err)
	assert.Equal(t, []forms.Entry{
		{Title: "Title", Value: "Mostly Harmless"},
		{Title: "Visibility", Value: "Public"},
	}, entries)

	values.Set("visibility", "secret")
	_, err = forms.DisplayValues(uploadForm(values))
	assert.ErrorIs(t, err, forms.ErrUnknownChoice)
}

func TestConceptForm_TypeLabel(t *testing.T) {
	choices := typeChoices([]concepts.ConceptType{
		{ID: "ct-1", Label: "Person"},
		{ID: "ct-2", Label: "Place"},
	})
	entries, err := forms.DisplayValues(conceptForm(url.Values{
		"label": {"Ford Prefect"},
		"type":  {"ct-1"},
	}, choices))
	require.NoError(t, err)
	assert.Equal(t, []forms.Entry{
		{Title: "Label", Value: "Ford Prefect"},
		{Title: "Type", Value: "Person"},
	}, entries)
}

func TestOptional(t *testing.T) {
	values := url.Values{"type": {"  "}, "uri": {"urn:x"}}
	assert.Nil(t, optional(values, "type"))
	require.NotNil(t, optional(values, "uri"))
	assert.Equal(t, "urn:x", *optional(values, "uri"))
}

func TestConfirmationPage(t *testing.T) {
	var b strings.Builder
	require.NoError(t, ConfirmationPage(SiteContext{}, nil, "Text uploaded", []forms.Entry{
		{Title: "Title", Value: "So Long"},
	}).Render(&b))
	assert.Contains(t, b.String(), "<dt>Title</dt><dd>So Long</dd>")
}

func TestConceptStatus(t *testing.T) {
	assert.Equal(t, "Your concept is Pending until a curator reviews it.",
		conceptStatus(&concepts.Concept{State: concepts.StatePending}))
}
