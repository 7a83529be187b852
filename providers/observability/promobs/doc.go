// Package promobs exports the service metrics to Prometheus.
//
// [Observer] wraps a slogobs.Observer: tracing and logging go to slog, while
// every counter and histogram update is also recorded in a
// prometheus.Registry that [Observer.Handler] serves in the text exposition
// format. The metrics named in observability/semconv.go are registered up
// front with fixed label sets; other names are created on first use with the
// attribute keys of that first call as labels.
package promobs
