// Package observability defines the tracing, metrics and logging interfaces
// used across genchat, plus the attribute keys, span names and metric names
// every component records under.
//
// [Provider] composes [Tracer], [Metrics] and [Logger]. A Provider and the
// active [Span] travel through a [context.Context] via [ContextWithObserver]
// and [ContextWithSpan].
package observability
