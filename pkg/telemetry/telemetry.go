// Package telemetry provides opt-in OpenTelemetry tracing for the pipeline.
//
// Configuration is read from standard environment variables:
//
//	OTEL_ENABLED                - enable/disable tracing (default: false)
//	OTEL_SERVICE_NAME           - service name (default: heapquery)
//	OTEL_EXPORTER_OTLP_ENDPOINT - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS  - headers, "k1=v1,k2=v2"
//	OTEL_EXPORTER_OTLP_INSECURE - use insecure connection (default: false)
//	OTEL_TRACES_SAMPLER         - always_on, always_off, traceidratio
//	OTEL_TRACES_SAMPLER_ARG     - sampler argument
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc is a function that shuts down the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init initializes OpenTelemetry and installs the global TracerProvider.
// When OTEL_ENABLED is not "true" it returns a no-op shutdown function and
// leaves the default no-op provider in place.
func Init(ctx context.Context) (ShutdownFunc, error) {
	cfg := loadConfig()

	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(createSampler(cfg)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}, nil
}

// Enabled returns whether OpenTelemetry tracing is enabled.
func Enabled() bool {
	return loadConfig().Enabled
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}
