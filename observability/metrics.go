package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records checkpoint store metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCommit records a checkpoint commit with its payload size and
	// error status.
	RecordCommit(ctx context.Context, sizeBytes int64, err error)

	// RecordAppend records an intermediate write append with its value size
	// and error status.
	RecordAppend(ctx context.Context, sizeBytes int64, err error)

	// RecordCompaction records a compaction pass.
	RecordCompaction(ctx context.Context, checkpointsDeleted, writesDeleted int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	commits          metric.Int64Counter
	appends          metric.Int64Counter
	payloadSize      metric.Int64Histogram
	compactedRecords metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("checkpointgo")

	commits, err := meter.Int64Counter("checkpointgo.commits",
		metric.WithDescription("Number of checkpoint commits"),
	)
	if err != nil {
		return nil, err
	}

	appends, err := meter.Int64Counter("checkpointgo.appends",
		metric.WithDescription("Number of intermediate write appends"),
	)
	if err != nil {
		return nil, err
	}

	payloadSize, err := meter.Int64Histogram("checkpointgo.payload_bytes",
		metric.WithDescription("Encoded payload size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	compactedRecords, err := meter.Int64Counter("checkpointgo.compacted_records",
		metric.WithDescription("Number of records removed by compaction"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		commits:          commits,
		appends:          appends,
		payloadSize:      payloadSize,
		compactedRecords: compactedRecords,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. Configure the provider before calling:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
//
// Falls back to NoopMetrics if the instruments cannot be created.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		return NoopMetrics{}
	}
	return m
}

// RecordCommit implements MetricsRecorder.
func (m *otelMetrics) RecordCommit(ctx context.Context, sizeBytes int64, err error) {
	attrs := metric.WithAttributes(attribute.Bool("error", err != nil))
	m.commits.Add(ctx, 1, attrs)
	if err == nil {
		m.payloadSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("record", "checkpoint")))
	}
}

// RecordAppend implements MetricsRecorder.
func (m *otelMetrics) RecordAppend(ctx context.Context, sizeBytes int64, err error) {
	attrs := metric.WithAttributes(attribute.Bool("error", err != nil))
	m.appends.Add(ctx, 1, attrs)
	if err == nil {
		m.payloadSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("record", "write")))
	}
}

// RecordCompaction implements MetricsRecorder.
func (m *otelMetrics) RecordCompaction(ctx context.Context, checkpointsDeleted, writesDeleted int64) {
	m.compactedRecords.Add(ctx, checkpointsDeleted, metric.WithAttributes(attribute.String("record", "checkpoint")))
	m.compactedRecords.Add(ctx, writesDeleted, metric.WithAttributes(attribute.String("record", "write")))
}
