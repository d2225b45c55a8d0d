package tracing

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/config"
)

// Module installs the global TracerProvider used by the server and the worker.
var Module = fx.Module("tracing",
	fx.Provide(NewProvider),
	fx.Invoke(registerShutdown),
)

// EchoModule adds request spans to the HTTP server. Server only.
var EchoModule = fx.Module("tracing.echo",
	fx.Invoke(registerMiddleware),
)

// Health checks and metrics scrapes would drown the request traces.
var untraced = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/metrics": true,
}

type providerOut struct {
	fx.Out

	SDK *sdktrace.TracerProvider `name:"vogonTracerProvider" optional:"true"`
}

type providerIn struct {
	fx.In

	SDK *sdktrace.TracerProvider `name:"vogonTracerProvider" optional:"true"`
}

// NewProvider builds the provider and makes it global. SDK is nil when
// tracing is off.
func NewProvider(cfg *config.Config, log *slog.Logger) (providerOut, error) {
	tp, err := install(cfg, log)
	if err != nil {
		return providerOut{}, err
	}
	return providerOut{SDK: tp}, nil
}

func registerShutdown(lc fx.Lifecycle, p providerIn, log *slog.Logger) {
	if p.SDK == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("flushing spans")
			return p.SDK.Shutdown(ctx)
		},
	})
}

func registerMiddleware(e *echo.Echo, cfg *config.Config) {
	if !cfg.Otel.Enabled() {
		return
	}
	e.Use(otelecho.Middleware(cfg.Otel.ServiceName, otelecho.WithSkipper(skipTrace)))
}

func skipTrace(c echo.Context) bool {
	return untraced[c.Request().URL.Path]
}
