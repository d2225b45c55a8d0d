package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/logger"
)

// AuthUser represents an authenticated user
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	// Audience is the token audience the request authenticated with.
	Audience string `json:"-"`
}

type contextKey string

const UserContextKey contextKey = "auth_user"

// GetUser retrieves the authenticated user from the Echo context
func GetUser(c echo.Context) *AuthUser {
	if user, ok := c.Get(string(UserContextKey)).(*AuthUser); ok {
		return user
	}
	return nil
}

// SetUser stores user on the context. Tests use it to skip the middleware.
func SetUser(c echo.Context, user *AuthUser) {
	c.Set(string(UserContextKey), user)
}

// Middleware handles authentication for routes
type Middleware struct {
	tokens *TokenIssuer
	cfg    config.AuthConfig
	log    *slog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(tokens *TokenIssuer, cfg *config.Config, log *slog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		cfg:    cfg.Auth,
		log:    log.With(logger.Scope("auth")),
	}
}

// RequireAuth accepts a bearer token (session or annotator audience) or the
// session cookie.
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.authenticate(c.Request(), AudienceSession, AudienceAnnotator)
			if err != nil {
				m.log.Debug("authentication failed",
					slog.String("path", c.Request().URL.Path),
					logger.Error(err))
				return err
			}
			SetUser(c, user)
			return next(c)
		}
	}
}

// RequireSession is for server-rendered pages: it only accepts the session
// cookie and redirects anonymous visitors to the login page.
func (m *Middleware) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.fromCookie(c.Request())
			if err != nil {
				target := url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusFound, "/login?next="+target)
			}
			SetUser(c, user)
			return next(c)
		}
	}
}

// RequireAdmin must run after RequireAuth.
func (m *Middleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.ErrUnauthorized
			}
			if !user.IsAdmin {
				return apperror.NewForbidden("Administrator access required")
			}
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(r *http.Request, audiences ...string) (*AuthUser, error) {
	if token := extractToken(r); token != "" {
		return m.verify(token, audiences...)
	}
	return m.fromCookie(r)
}

func (m *Middleware) fromCookie(r *http.Request) (*AuthUser, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, apperror.ErrMissingToken
	}
	return m.verify(cookie.Value, AudienceSession)
}

func (m *Middleware) verify(token string, audiences ...string) (*AuthUser, error) {
	claims, err := m.tokens.Verify(token, audiences...)
	if err != nil {
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}
	aud := ""
	if len(claims.Audience) > 0 {
		aud = claims.Audience[0]
	}
	return &AuthUser{
		ID:       claims.Subject,
		Username: claims.Username,
		IsAdmin:  claims.Admin,
		Audience: aud,
	}, nil
}

// extractToken returns the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// SetSessionCookie stores a session token in the session cookie.
func (m *Middleware) SetSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *Middleware) ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
