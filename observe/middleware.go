package observe

import (
	"context"
	"time"
)

// CallFunc is the signature of a call that Middleware wraps.
type CallFunc func(ctx context.Context, meta OperationMeta, input any) (any, error)

// Middleware wraps calls with a span, call metrics and a completion log line.
//
// Contract:
//   - Concurrency: Wrap returns a CallFunc safe for concurrent use.
//   - Context: the call span is carried in the context passed to the wrapped
//     function, so attempt spans become its children.
//   - Errors: errors from the wrapped function are recorded and returned
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil components are replaced with
// no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver builds a Middleware on the observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the tracer used for call and attempt spans.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the call metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the base logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with tracing, metrics and logging.
func (m *Middleware) Wrap(fn CallFunc) CallFunc {
	return func(ctx context.Context, meta OperationMeta, input any) (any, error) {
		ctx, span := m.tracer.StartCall(ctx, meta)
		start := m.now()

		out, err := fn(ctx, meta, input)

		elapsed := m.now().Sub(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, elapsed, err)

		log := m.logger.WithOperation(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(elapsed.Microseconds()) / 1000}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			log.Error(ctx, "call failed", fields...)
		} else {
			log.Info(ctx, "call completed", fields...)
		}
		return out, err
	}
}
