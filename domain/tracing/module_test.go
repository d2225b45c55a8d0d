package tracing

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vogonweb/vogon/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	res, err := NewProvider(&config.Config{}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, res.SDK)
}

func TestNewProvider_Enabled(t *testing.T) {
	cfg := &config.Config{
		Environment: "staging",
		Otel: config.OtelConfig{
			ExporterEndpoint: "http://127.0.0.1:4318",
			ServiceName:      "vogon-test",
			SamplingRate:     1,
			Insecure:         true,
		},
	}
	res, err := NewProvider(cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, res.SDK)
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = res.SDK.Shutdown(ctx)
	})
}

func TestRegisterMiddleware_DisabledIsNoop(t *testing.T) {
	e := echo.New()
	registerMiddleware(e, &config.Config{})
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Equal(t, "AlwaysOnSampler", sampler(2).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestSkipTrace(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{"/metrics": true, "/healthz": true, "/api/texts": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		assert.Equal(t, want, skipTrace(c), path)
	}
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(&config.Config{
		Environment: "production",
		Otel:        config.OtelConfig{ServiceName: "vogon"},
	})
	set := attribute.NewSet(attrs...)

	v, ok := set.Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "vogon", v.AsString())
	v, ok = set.Value("deployment.environment")
	require.True(t, ok)
	assert.Equal(t, "production", v.AsString())
	_, ok = set.Value("service.version")
	assert.True(t, ok)

	noEnv := attribute.NewSet(resourceAttributes(&config.Config{})...)
	_, ok = noEnv.Value("deployment.environment")
	assert.False(t, ok)
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions(config.OtelConfig{ExporterEndpoint: "http://c:4318", Insecure: true}), 2)
	assert.Len(t, exporterOptions(config.OtelConfig{ExporterEndpoint: "https://c:4318"}), 1)
}
