package observe

import (
	"context"
	"time"
)

// StageFunc is the body of one bootstrap stage.
type StageFunc func(ctx context.Context) error

// Runner wraps bootstrap stages with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the stage receives a context carrying its span.
//   - Errors: errors from the stage are recorded and returned unchanged.
type Runner struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewRunner creates a Runner. Nil components are replaced with no-ops.
func NewRunner(tracer Tracer, metrics Metrics, logger Logger) *Runner {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Runner{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopRunner returns a Runner that records nothing.
func NopRunner() *Runner {
	return NewRunner(nil, nil, nil)
}

// Logger returns the runner's logger.
func (r *Runner) Logger() Logger {
	return r.logger
}

// Run executes fn as stage meta.
func (r *Runner) Run(ctx context.Context, meta StageMeta, fn StageFunc) error {
	if meta.Stage == "" {
		return ErrMissingStage
	}

	ctx, span := r.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	r.tracer.EndSpan(span, err)
	r.metrics.RecordStage(ctx, meta, duration, err)

	stageLogger := r.logger.WithStage(meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}

	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		stageLogger.Error(ctx, "bootstrap stage failed", fields...)
	} else {
		stageLogger.Debug(ctx, "bootstrap stage completed", fields...)
	}

	return err
}

// RunnerFromObserver creates a Runner from an Observer.
func RunnerFromObserver(obs Observer) (*Runner, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewRunner(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
