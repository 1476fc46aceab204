package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// CloseFunc flushes and stops a provider.
type CloseFunc func(ctx context.Context) error

// TraceProviderBuilder -.
type TraceProviderBuilder struct {
	name     string
	version  string
	exporter sdktrace.SpanExporter
}

// NewTraceProviderBuilder -.
func NewTraceProviderBuilder(name string) *TraceProviderBuilder {
	return &TraceProviderBuilder{name: name}
}

// SetExporter -.
func (b *TraceProviderBuilder) SetExporter(exp sdktrace.SpanExporter) *TraceProviderBuilder {
	b.exporter = exp
	return b
}

// SetVersion -.
func (b *TraceProviderBuilder) SetVersion(version string) *TraceProviderBuilder {
	b.version = version
	return b
}

// Build returns a provider batching spans to the exporter. Without an exporter spans are recorded but dropped.
func (b *TraceProviderBuilder) Build() (*sdktrace.TracerProvider, CloseFunc, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", b.name)}
	if b.version != "" {
		attrs = append(attrs, attribute.String("service.version", b.version))
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if b.exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(b.exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	return tp, tp.Shutdown, nil
}
