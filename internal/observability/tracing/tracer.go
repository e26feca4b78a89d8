package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the pptgen application.
var tracer = otel.Tracer("pptgen")

// GetTracer returns the global tracer for creating spans.
// It delegates to whatever provider is installed via otel.SetTracerProvider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
