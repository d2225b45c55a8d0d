// Package web serves the server-rendered pages: login, annotation, text
// upload and concept submission, plus the HTML forbidden page.
package web

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/version"
)

const siteContextKey = "web_site"

// SiteContext holds the values every page layout needs.
type SiteContext struct {
	AnalyticsID string
	Version     string
	BaseURL     string
}

// NewSiteContext builds the site context from configuration. The build
// version is used when no version is configured.
func NewSiteContext(cfg *config.Config) SiteContext {
	v := cfg.Site.Version
	if v == "" {
		v = version.Current().String()
	}
	return SiteContext{
		AnalyticsID: cfg.Site.AnalyticsID,
		Version:     v,
		BaseURL:     strings.TrimRight(cfg.Site.BaseURL, "/"),
	}
}

// URL returns the absolute URL of path.
func (s SiteContext) URL(path string) string {
	return s.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// SiteMiddleware stores site on every request so error pages can use it.
func SiteMiddleware(site SiteContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(siteContextKey, site)
			return next(c)
		}
	}
}

func siteFrom(c echo.Context) SiteContext {
	if s, ok := c.Get(siteContextKey).(SiteContext); ok {
		return s
	}
	return SiteContext{}
}
