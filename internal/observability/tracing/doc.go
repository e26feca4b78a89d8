// Package tracing provides OpenTelemetry tracing integration.
//
// The package exposes a single application tracer. Backend calls made through
// the resilient client open one span per call, covering every retry attempt;
// Middleware opens a server span for requests to the daemon's own endpoints.
// No exporter is installed here; the composition root decides whether to set
// a tracer provider with otel.SetTracerProvider.
//
// Example usage:
//
//	import "pptgen/internal/observability/tracing"
//
//	func call(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "apiclient.request")
//	    defer span.End()
//	}
package tracing
