// Package observability defines the tracing, metrics and logging interfaces
// shared by the model providers, the generation service and the HTTP server.
//
// Implementations live in sub-packages: slogobs writes everything through
// log/slog, promobs adds Prometheus counters and histograms on top of it.
// A [Provider] and the active [Span] travel through a [context.Context] with
// [ContextWithObserver] and [ContextWithSpan].
//
// semconv.go lists the attribute keys, span names and metric names; use them
// instead of ad hoc strings so dashboards and log queries stay stable.
package observability
