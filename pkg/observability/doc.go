// Package observability provides structured logging, Prometheus metrics
// and OpenTelemetry tracing for the authorisation service.
package observability
