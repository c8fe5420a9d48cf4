// Package telemetry sets up OpenTelemetry trace and metric export, provides
// the Metrics sink the Retriever and Context Builder record through, and a
// StageSpan helper for pipeline-stage spans, mirroring the teacher's
// internal/telemetry/otel.go and internal/rag/obs/metrics.go.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry related settings (mirrors config.TelemetryConfig
// field-for-field so callers can pass it through without adapting shapes).
type Config struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Shutdown stops both the tracer and meter providers.
type Shutdown func(context.Context) error

// Setup initializes tracing and metrics exporters over OTLP/HTTP. When
// disabled or no endpoint is configured, it installs no-op providers so call
// sites never need a nil check.
func Setup(ctx context.Context, cfg Config) (Shutdown, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

// Tracer returns the pipeline-stage tracer.
func Tracer() trace.Tracer { return otel.Tracer("newsbrief") }

// StageSpan starts a span for a named pipeline stage with a correlation_id
// attribute, returning the derived context and an end function.
func StageSpan(ctx context.Context, stage, correlationID string) (context.Context, func()) {
	ctx, span := Tracer().Start(ctx, "pipeline."+stage, trace.WithAttributes(
		attribute.String("correlation_id", correlationID),
	))
	return ctx, func() { span.End() }
}

// Meter returns the process-wide meter used for stage/model-call histograms.
func Meter() metric.Meter { return otel.Meter("newsbrief") }
