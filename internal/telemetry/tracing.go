package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "taskboard"

// Tracing holds the tracer provider chosen by InitTracing.
type Tracing struct {
	Provider trace.TracerProvider
	shutdown func(context.Context) error
}

// Tracer returns a named tracer from the provider.
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.Provider.Tracer(name)
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// InitTracing sets up tracing. Exporter "none" (or empty) installs a no-op
// provider; "stdout" writes finished spans as JSON to w. The provider is also
// registered globally so instrumented HTTP transports pick it up.
func InitTracing(ctx context.Context, exporter string, w io.Writer) (*Tracing, error) {
	switch exporter {
	case "", "none":
		return &Tracing{Provider: nooptrace.NewTracerProvider()}, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unknown trace exporter %q (supported: none, stdout)", exporter)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return &Tracing{Provider: tp, shutdown: tp.Shutdown}, nil
}
