package giles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/logger"
)

// ErrNotConfigured is returned when no Giles application token is set.
var ErrNotConfigured = errors.New("giles is not configured")

// maxResponseSize bounds response bodies read from Giles.
const maxResponseSize = 32 << 20

// Client talks to the Giles REST API. Outbound calls share one rate limiter.
type Client struct {
	baseURL    string
	appToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a Giles client from configuration
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	rps := cfg.Giles.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	appToken := ""
	if cfg.Giles.IsConfigured() {
		appToken = cfg.Giles.AppToken
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.Giles.URL, "/"),
		appToken: appToken,
		httpClient: &http.Client{
			Timeout: cfg.Giles.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With(logger.Scope("giles.client")),
	}
}

// Configured reports whether the client has an application token.
func (c *Client) Configured() bool {
	return c.appToken != ""
}

// BaseURL returns the Giles base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ExchangeToken trades an identity provider token for a Giles user token.
func (c *Client) ExchangeToken(ctx context.Context, providerToken string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	form := url.Values{"providerToken": {providerToken}}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/token", "token "+c.appToken, strings.NewReader(form.Encode()), &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("giles returned an empty token")
	}
	return out.Token, nil
}

// Uploads lists the uploads of the user owning token.
func (c *Client) Uploads(ctx context.Context, token string) ([]Upload, error) {
	var out []Upload
	if err := c.do(ctx, http.MethodGet, "/rest/files/uploads", "Bearer "+token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Upload{}
	}
	return out, nil
}

// Upload returns one upload with its documents.
func (c *Client) Upload(ctx context.Context, token, uploadID string) (*Upload, error) {
	var docs []Document
	path := "/rest/files/upload/check/" + url.PathEscape(uploadID)
	if err := c.do(ctx, http.MethodGet, path, "Bearer "+token, nil, &docs); err != nil {
		return nil, err
	}
	return &Upload{ID: uploadID, Documents: docs}, nil
}

// FileContent returns the content of a stored file as text.
func (c *Client) FileContent(ctx context.Context, token, fileID string) (string, error) {
	var body strings.Builder
	path := "/rest/files/" + url.PathEscape(fileID) + "/content"
	if err := c.do(ctx, http.MethodGet, path, "Bearer "+token, nil, &body); err != nil {
		return "", err
	}
	return body.String(), nil
}

// StatusError is a non-2xx response from Giles.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("giles API error (status %d): %s", e.Status, e.Body)
}

// do performs one rate-limited request. out is either a *strings.Builder
// receiving the raw body or a value the JSON body is decoded into.
func (c *Client) do(ctx context.Context, method, path, authorization string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("giles rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("giles request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read giles response: %w", err)
	}
	c.log.Debug("giles request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: truncate(string(data), 500)}
	}

	if sb, ok := out.(*strings.Builder); ok {
		sb.Write(data)
		return nil
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode giles response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
