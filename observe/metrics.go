package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call, attempt and retry-quota measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a finished call.
	RecordCall(ctx context.Context, meta OperationMeta, duration time.Duration, err error)

	// RecordAttempt records one transmission attempt of a call.
	RecordAttempt(ctx context.Context, meta OperationMeta, attempt int, err error)

	// RecordQuotaDenied records a retry refused by the token bucket.
	RecordQuotaDenied(ctx context.Context, meta OperationMeta)
}

type metricsImpl struct {
	calls       metric.Int64Counter
	callErrors  metric.Int64Counter
	duration    metric.Float64Histogram
	attempts    metric.Int64Counter
	retries     metric.Int64Counter
	quotaDenied metric.Int64Counter
}

// NewMetrics creates the call instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	var (
		m   metricsImpl
		err error
	)
	if m.calls, err = meter.Int64Counter("callrt.call.total",
		metric.WithDescription("Total number of calls"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.callErrors, err = meter.Int64Counter("callrt.call.errors",
		metric.WithDescription("Total number of failed calls"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("callrt.call.duration_ms",
		metric.WithDescription("Call duration in milliseconds, retries included"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.attempts, err = meter.Int64Counter("callrt.attempt.total",
		metric.WithDescription("Total number of transmission attempts"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter("callrt.retry.total",
		metric.WithDescription("Attempts after the first one"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.quotaDenied, err = meter.Int64Counter("callrt.retry.quota_denied",
		metric.WithDescription("Retries refused by the retry token bucket"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, meta OperationMeta, attempt int, err error) {
	attrs := append(meta.attributes(), attribute.Bool("call.error", err != nil))
	opt := metric.WithAttributes(attrs...)
	m.attempts.Add(ctx, 1, opt)
	if attempt > 1 {
		m.retries.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordQuotaDenied(ctx context.Context, meta OperationMeta) {
	m.quotaDenied.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

type noopMetrics struct{}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordCall(context.Context, OperationMeta, time.Duration, error) {}
func (noopMetrics) RecordAttempt(context.Context, OperationMeta, int, error)        {}
func (noopMetrics) RecordQuotaDenied(context.Context, OperationMeta)                {}
