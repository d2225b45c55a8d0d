package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vogonweb/vogon/internal/tasks"
	"github.com/vogonweb/vogon/internal/version"
	"github.com/vogonweb/vogon/pkg/apperror"
	"github.com/vogonweb/vogon/pkg/syshealth"
)

const checkTimeout = 5 * time.Second

// Pinger is satisfied by *pgxpool.Pool and *tasks.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource reports task stream statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*tasks.Stats, error)
}

// Handler handles health check requests
type Handler struct {
	db      Pinger
	broker  Pinger
	stats   StatsSource
	monitor syshealth.Monitor
	startAt time.Time
	metrics http.Handler
}

// NewHandler creates a new health handler
func NewHandler(pool *pgxpool.Pool, client *tasks.Client, monitor syshealth.Monitor) *Handler {
	return newHandler(pool, client, client, monitor)
}

func newHandler(db, broker Pinger, stats StatsSource, monitor syshealth.Monitor) *Handler {
	return &Handler{
		db:      db,
		broker:  broker,
		stats:   stats,
		monitor: monitor,
		startAt: time.Now(),
		metrics: promhttp.Handler(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Uptime    string              `json:"uptime"`
	Version   version.Info        `json:"version"`
	Checks    map[string]Check    `json:"checks"`
	System    *syshealth.Snapshot `json:"system,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func check(ctx context.Context, p Pinger) Check {
	if err := p.Ping(ctx); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy"}
}

// Health reports database and broker connectivity. A broker outage reports
// "degraded" with status 200.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).Round(time.Second).String(),
		Version:   version.Current(),
		Checks: map[string]Check{
			"database": check(ctx, h.db),
			"redis":    check(ctx, h.broker),
		},
	}
	if h.monitor != nil {
		snap := h.monitor.Snapshot()
		resp.System = &snap
	}

	status := http.StatusOK
	switch {
	case resp.Checks["database"].Status != "healthy":
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case resp.Checks["redis"].Status != "healthy":
		resp.Status = "degraded"
	}
	return c.JSON(status, resp)
}

// Healthz handles GET /healthz for liveness checks.
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready handles GET /ready; it only needs the database.
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "Database connection failed",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Metrics serves the Prometheus registry.
func (h *Handler) Metrics(c echo.Context) error {
	h.metrics.ServeHTTP(c.Response(), c.Request())
	return nil
}

// TaskStats returns the task stream length, pending entries and DLQ length.
func (h *Handler) TaskStats(c echo.Context) error {
	stats, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return apperror.ErrServiceUnavailable.WithMessage("Task broker unavailable").WithInternal(err)
	}
	return c.JSON(http.StatusOK, stats)
}
