package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// Instrument names.
const (
	MetricStageTotal    = "bootstrap.stage.total"
	MetricStageErrors   = "bootstrap.stage.errors"
	MetricStageDuration = "bootstrap.stage.duration_ms"
)

// Metrics records per-stage bootstrap metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordStage records one stage execution with duration and error status.
	RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		MetricStageTotal,
		metric.WithDescription("Total number of bootstrap stage executions"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricStageErrors,
		metric.WithDescription("Total number of failed bootstrap stages"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricStageDuration,
		metric.WithDescription("Bootstrap stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordStage records metrics for a stage execution.
func (m *metricsImpl) RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(stageAttributes(meta)...)

	m.totalCount.Add(ctx, 1, opt)

	if err != nil {
		attrs := append(stageAttributes(meta), attribute.String("bootstrap.error.kind", errdefs.Kind(err)))
		m.errorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, err error) {
}
