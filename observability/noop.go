package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordCommit does nothing.
func (NoopMetrics) RecordCommit(_ context.Context, _ int64, _ error) {}

// RecordAppend does nothing.
func (NoopMetrics) RecordAppend(_ context.Context, _ int64, _ error) {}

// RecordCompaction does nothing.
func (NoopMetrics) RecordCompaction(_ context.Context, _, _ int64) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartCommitSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartCommitSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartAppendSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartAppendSpan(ctx context.Context, _, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartCompactionSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartCompactionSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
