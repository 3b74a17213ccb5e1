// Package telemetry sets up OpenTelemetry tracing for commit passes.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// EnvEndpoint enables export when set.
	EnvEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	// EnvServiceName overrides the reported service name.
	EnvServiceName = "OTEL_SERVICE_NAME"

	defaultServiceName = "deckr"
	instrumentation    = "github.com/alexisbeaulieu97/deckr"
)

// Provider owns the tracer used by the renderer. A disabled provider hands
// out a no-op tracer.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// New returns an exporting provider when OTEL_EXPORTER_OTLP_ENDPOINT is set,
// otherwise a disabled one.
func New(ctx context.Context) (*Provider, error) {
	return NewFromEnv(ctx, os.Getenv)
}

// NewFromEnv is New with an explicit environment lookup.
func NewFromEnv(ctx context.Context, getenv func(string) string) (*Provider, error) {
	endpoint := getenv(EnvEndpoint)
	if endpoint == "" {
		return Disabled(), nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	serviceName := getenv(EnvServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(instrumentation),
	}, nil
}

// Disabled returns a provider that records nothing.
func Disabled() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentation)}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.provider != nil
}

// Tracer returns the tracer to hand to the renderer.
func (p *Provider) Tracer() oteltrace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer(instrumentation)
	}
	return p.tracer
}

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
