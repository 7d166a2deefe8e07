// Package telemetry bootstraps OpenTelemetry tracing for cmd/server.
//
// Every app in this codebase's ancestry calls a
// packages/go-core/telemetry.InitTracer — but that package only ever
// defines InitMeterProvider; InitTracer itself was never written. Rather
// than carry the gap forward, this package fills it, mirroring
// InitMeterProvider's OTLP/gRPC exporter and resource setup one signal
// over.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// InitTracer bootstraps the OpenTelemetry TracerProvider with an OTLP/gRPC
// span exporter targeting endpoint (e.g. "jaeger:4317"). The caller must
// defer tp.Shutdown(ctx) to flush pending spans on exit.
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}
