package cli

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/crumbs/pkg/version"
)

// tracingEnvVars enable trace export when any of them is set.
var tracingEnvVars = []string{
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
}

// SetupTracing installs an OTLP/gRPC tracer provider when an OTLP endpoint is
// configured through the environment. Otherwise the global no-op provider is
// left in place. The returned function flushes and stops the provider.
func SetupTracing(ctx context.Context) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if !tracingEnabled() {
		return noop, nil
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cmdName),
		attribute.String("service.version", version.GetVersion()),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func tracingEnabled() bool {
	for _, name := range tracingEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}

	return false
}
