package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/version"
	"github.com/vogonweb/vogon/pkg/logger"
)

// install sets the global provider: no-op without an OTLP endpoint, otherwise
// a batching SDK provider exporting over HTTP.
func install(cfg *config.Config, log *slog.Logger) (*sdktrace.TracerProvider, error) {
	log = log.With(logger.Scope("tracing"))
	oc := cfg.Otel

	if !oc.Enabled() {
		log.Info("tracing off, OTEL_EXPORTER_OTLP_ENDPOINT is empty")
		otel.SetTracerProvider(noop.NewTracerProvider())
		return nil, nil
	}

	exp, err := otlptracehttp.New(context.Background(), exporterOptions(oc)...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(serviceResource(cfg, log)),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(oc.SamplingRate))),
	)
	otel.SetTracerProvider(tp)

	log.Info("tracing on",
		slog.String("endpoint", oc.ExporterEndpoint),
		slog.String("service", oc.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Float64("sampling_rate", oc.SamplingRate),
	)
	return tp, nil
}

func exporterOptions(oc config.OtelConfig) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(oc.ExporterEndpoint)}
	if oc.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

func resourceAttributes(cfg *config.Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.Otel.ServiceName),
		semconv.ServiceVersion(version.Current().String()),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	return attrs
}

// serviceResource merges the Vogon attributes with OTEL_RESOURCE_ATTRIBUTES
// and process details. Detection failures only cost the extra attributes.
func serviceResource(cfg *config.Config, log *slog.Logger) *resource.Resource {
	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(resourceAttributes(cfg)...),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("resource detection failed", logger.Error(err))
		return resource.NewSchemaless(resourceAttributes(cfg)...)
	}
	return res
}

// sampler keeps every trace at rate >= 1 and a ratio otherwise; task spans
// follow the sampling decision of the request that enqueued them.
func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}
