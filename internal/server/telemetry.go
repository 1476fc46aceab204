package server

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"audio_extraction/config"
	ttrace "audio_extraction/internal/telemetry/trace"
	traceExporter "audio_extraction/internal/telemetry/trace/exporter"
)

// InitGlobalProvider installs the global tracer provider for the configured exporter.
func (s *Server) InitGlobalProvider(ctx context.Context, cfg *config.Config) error {
	var spanExporter sdktrace.SpanExporter

	switch cfg.OTEL.Exporter {
	case "jaeger":
		exp, err := traceExporter.NewJaeger(cfg.OTEL.JaegerEndpoint)
		if err != nil {
			return errors.Wrap(err, "failed initializing the jaeger exporter")
		}
		spanExporter = exp
	case "otlp":
		exp, err := traceExporter.NewOTLP(ctx, cfg.OTEL.OTLPEndpoint)
		if err != nil {
			return errors.Wrap(err, "failed initializing the otlp exporter")
		}
		spanExporter = exp
	}

	tracerProvider, tracerProviderCloseFn, err := ttrace.NewTraceProviderBuilder(cfg.App.Name).
		SetVersion(cfg.App.Version).
		SetExporter(spanExporter).
		Build()
	if err != nil {
		return errors.Wrap(err, "failed initializing the tracer provider")
	}
	s.traceProviderCloseFn = append(s.traceProviderCloseFn, tracerProviderCloseFn)

	// set global propagator to tracecontext (the default is no-op).
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tracerProvider)

	return nil
}
