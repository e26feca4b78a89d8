// Package observability groups the cross-cutting observability helpers:
// structured logging and OpenTelemetry tracing.
//
// Prometheus metrics live next to the component they describe
// (apiclient, connectivity, config) and are registered on an injected registerer.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - tracing: OpenTelemetry tracer access
package observability
