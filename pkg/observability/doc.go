// Package observability provides structured logging, Prometheus metrics,
// and health probes for the Aspect server.
//
// Logging uses stdlib slog with a JSON handler; metrics are registered on a
// dedicated registry and served from the health/metrics listener so that
// probes and scrapes stay off the API port.
package observability
