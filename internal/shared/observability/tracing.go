package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the process-wide tracer used to span refresh cycles and context
// gathers. It starts out as the global no-op tracer; InitTracing swaps in a
// real SDK-backed tracer once an OTLP endpoint is configured.
var Tracer trace.Tracer = otel.Tracer("indexchan")

// InitTracing wires an OTLP gRPC exporter into the global tracer provider
// and refreshes Tracer from it. Called with an empty endpoint, it leaves the
// no-op tracer in place so that Start/End calls throughout the codebase stay
// cheap when no collector is configured. The returned shutdown func flushes
// and closes the exporter; callers should defer it.
func InitTracing(ctx context.Context, endpoint, serviceVersion string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName("indexchan"),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("indexchan")

	return provider.Shutdown, nil
}
