// Package telemetry provides OpenTelemetry tracing for devenv. Tracing is off
// unless enabled; spans are then exported over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Config is the `tracing` section of the devenv configuration
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Sampler is one of always, never, ratio
	Sampler string  `mapstructure:"sampler"`
	Ratio   float64 `mapstructure:"ratio"`

	ServiceName    string `mapstructure:"-"`
	ServiceVersion string `mapstructure:"-"`
}

// InitTracer installs the global tracer provider and returns the function
// that flushes and stops it. With tracing disabled the global no-op provider
// stays in place and shutdown does nothing.
func InitTracer(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	sampler, err := newSampler(cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create resource")
	}

	// endpoint and headers come from OTEL_EXPORTER_OTLP_ENDPOINT / _HEADERS
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create trace exporter")
	}

	provider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(trace.NewBatchSpanProcessor(
			exporter,
			trace.WithMaxExportBatchSize(512),
			trace.WithBatchTimeout(time.Second),
		)),
		trace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		// provider shutdown also shuts the exporter down via the processor
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}

func newSampler(cfg Config) (trace.Sampler, error) {
	switch cfg.Sampler {
	case "", "always":
		return trace.AlwaysSample(), nil
	case "never":
		return trace.NeverSample(), nil
	case "ratio":
		if cfg.Ratio < 0 || cfg.Ratio > 1 {
			return nil, pkgerrors.Errorf("tracing ratio must be within [0, 1], got %v", cfg.Ratio)
		}
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.Ratio)), nil
	default:
		return nil, pkgerrors.Errorf("unknown tracing sampler %q (supported: always, never, ratio)", cfg.Sampler)
	}
}
