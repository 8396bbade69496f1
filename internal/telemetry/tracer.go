package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// GatewayResourceAttributes derives the resource attributes InitTracer
// attaches to every span this process emits, tying a trace back to the
// loaded gateway.yaml rather than just a bare service name: how many
// providers and models were configured at startup, and whether rate
// limiting is enabled. A span exported from a
// gateway running two providers is indistinguishable from one running
// twelve without this — useful when comparing fallback-chain latency across
// deployments from stdout-exporter output alone.
func GatewayResourceAttributes(providerCount, modelCount int, rateLimitEnabled bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("cligateway.provider_count", providerCount),
		attribute.Int("cligateway.model_count", modelCount),
		attribute.Bool("cligateway.rate_limit_enabled", rateLimitEnabled),
	}
}

// InitTracer initializes OpenTelemetry tracing for serviceName, merging in
// extraAttrs (see GatewayResourceAttributes) so the gateway's own
// configuration shape travels with every exported span.
func InitTracer(serviceName string, logger *slog.Logger, extraAttrs ...attribute.KeyValue) (func(context.Context) error, error) {
	// Stdout exporter: this gateway has no collector deployment story yet,
	// so spans land in the same structured log stream as everything else.
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	attrs := append([]attribute.KeyValue{semconv.ServiceName(serviceName)}, extraAttrs...)
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry initialized", slog.String("service", serviceName), slog.Int("extra_attrs", len(extraAttrs)))

	return tp.Shutdown, nil
}
