package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/apperror"
)

func testConfig() *config.Config {
	return &config.Config{Auth: config.AuthConfig{
		JWTSecret:    "test-secret",
		SessionTTL:   time.Hour,
		AnnotatorTTL: 10 * time.Minute,
		CookieName:   "vogon_session",
	}}
}

func newTestMiddleware() (*Middleware, *TokenIssuer) {
	cfg := testConfig()
	tokens := NewTokenIssuer(cfg)
	return NewMiddleware(tokens, cfg, slog.Default()), tokens
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		want       string
	}{
		{"bearer token", "Bearer eyJhbGciOiJIUzI1NiJ9.x.y", "eyJhbGciOiJIUzI1NiJ9.x.y"},
		{"no header", "", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"empty bearer", "Bearer ", ""},
		{"no space", "Bearertoken", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/texts", nil)
			if tt.authHeader != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.authHeader)
			}
			assert.Equal(t, tt.want, extractToken(req))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	m, tokens := newTestMiddleware()
	id := Identity{ID: "u1", Username: "arthur"}

	session, _, err := tokens.IssueSession(id)
	require.NoError(t, err)
	annotator, _, err := tokens.IssueAnnotator(id)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		cookie  string
		wantErr *apperror.Error
		wantAud string
	}{
		{name: "session bearer", header: "Bearer " + session, wantAud: AudienceSession},
		{name: "annotator bearer", header: "Bearer " + annotator, wantAud: AudienceAnnotator},
		{name: "session cookie", cookie: session, wantAud: AudienceSession},
		{name: "annotator token rejected in cookie", cookie: annotator, wantErr: apperror.ErrInvalidToken},
		{name: "garbage", header: "Bearer nope", wantErr: apperror.ErrInvalidToken},
		{name: "anonymous", wantErr: apperror.ErrMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/texts", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "vogon_session", Value: tt.cookie})
			}
			c := e.NewContext(req, httptest.NewRecorder())

			var seen *AuthUser
			err := m.RequireAuth()(func(c echo.Context) error {
				seen = GetUser(c)
				return nil
			})(c)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, seen)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, seen)
			assert.Equal(t, "u1", seen.ID)
			assert.Equal(t, "arthur", seen.Username)
			assert.Equal(t, tt.wantAud, seen.Audience)
		})
	}
}

func TestRequireSession_RedirectsToLogin(t *testing.T) {
	m, _ := newTestMiddleware()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/annotate/text/42", nil), rec)

	err := m.RequireSession()(func(c echo.Context) error { return nil })(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fannotate%2Ftext%2F42", rec.Header().Get(echo.HeaderLocation))
}

func TestRequireAdmin(t *testing.T) {
	m, _ := newTestMiddleware()
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
	SetUser(c, &AuthUser{ID: "u1"})
	assert.ErrorIs(t, m.RequireAdmin()(ok)(c), apperror.ErrForbidden)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
	SetUser(c, &AuthUser{ID: "u1", IsAdmin: true})
	assert.NoError(t, m.RequireAdmin()(ok)(c))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
	assert.ErrorIs(t, m.RequireAdmin()(ok)(c), apperror.ErrUnauthorized)
}

func TestSessionCookie(t *testing.T) {
	m, _ := newTestMiddleware()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)

	m.SetSessionCookie(c, "tok", time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "vogon_session", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/logout", nil), rec)
	m.ClearSessionCookie(c)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}
