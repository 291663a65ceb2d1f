package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the checkpointgo tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("checkpointgo")

// SpanManager handles trace span lifecycle around store operations.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCommitSpan starts a span for a checkpoint commit.
	StartCommitSpan(ctx context.Context, threadID, namespace, checkpointID string) (context.Context, trace.Span)

	// StartAppendSpan starts a span for an intermediate write append.
	StartAppendSpan(ctx context.Context, threadID, namespace, checkpointID, taskID string) (context.Context, trace.Span)

	// StartCompactionSpan starts a span for a compaction pass over a scope.
	StartCompactionSpan(ctx context.Context, threadID, namespace string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCommitSpan starts a span for a checkpoint commit.
func (m *otelSpanManager) StartCommitSpan(ctx context.Context, threadID, namespace, checkpointID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "checkpointgo.commit",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("thread.namespace", namespace),
			attribute.String("checkpoint.id", checkpointID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartAppendSpan starts a span for an intermediate write append.
func (m *otelSpanManager) StartAppendSpan(ctx context.Context, threadID, namespace, checkpointID, taskID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "checkpointgo.append",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("thread.namespace", namespace),
			attribute.String("checkpoint.id", checkpointID),
			attribute.String("task.id", taskID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCompactionSpan starts a span for a compaction pass.
func (m *otelSpanManager) StartCompactionSpan(ctx context.Context, threadID, namespace string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "checkpointgo.compact",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("thread.namespace", namespace),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
