package tracing

import (
	"context"
	"log/slog"

	pkgotel "carris2pg/pkg/otel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

// InitTracing sets up the global tracer provider with the configured OTLP
// exporter. Returns a shutdown function to call on exit. When tracing is
// disabled or the exporter cannot be created, spans stay noop.
func InitTracing() (func(), error) {
	if !pkgotel.IsTracingEnabled() {
		slog.Debug("OpenTelemetry tracing is disabled")
		return func() {}, nil
	}

	ctx := context.Background()
	cfg := pkgotel.GetExporterConfig(pkgotel.SignalTraces)

	exporter, err := pkgotel.NewTraceExporter(ctx, cfg)
	if err != nil {
		slog.Warn("Failed to create OTLP trace exporter, using noop", "error", err)
		return func() {}, nil
	}

	res, err := pkgotel.NewResource()
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	slog.Debug("OpenTelemetry tracing initialized", "endpoint", cfg.Endpoint, "protocol", cfg.Protocol)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", "error", err)
		}
	}, nil
}
