package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// ShutdownFunc flushes and stops a provider
type ShutdownFunc func(ctx context.Context) error

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

// SetupTracing installs a global tracer provider that writes spans to w
// (stdout when w is nil). Replace the exporter with OTLP for a real collector.
func SetupTracing(serviceName string, w io.Writer) (ShutdownFunc, error) {
	if w == nil {
		w = os.Stdout
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("initialize stdouttrace exporter: %w", err)
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("build tracing resource: %w", err)
	}
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// SetupMetrics installs a global meter provider whose instruments are exported
// through reg, so otel instruments show up next to the native Prometheus collectors.
func SetupMetrics(serviceName string, reg prometheus.Registerer) (ShutdownFunc, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("initialize prometheus exporter: %w", err)
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("build metrics resource: %w", err)
	}
	provider := metric.NewMeterProvider(
		metric.WithReader(exp),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
