package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta identifies the operation a call invokes.
type OperationMeta struct {
	Service   string // Service the operation belongs to (optional)
	Operation string // Operation name (required)
	Version   string // Client version (optional)
}

// ID returns "service.operation", or just the operation without a service.
func (m OperationMeta) ID() string {
	if m.Service != "" {
		return m.Service + "." + m.Operation
	}
	return m.Operation
}

// SpanName returns the span name used for calls of this operation.
func (m OperationMeta) SpanName() string {
	return "call." + m.ID()
}

// Validate reports whether the metadata names an operation.
func (m OperationMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperationName
	}
	return nil
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("rpc.method", m.Operation),
	}
	if m.Service != "" {
		attrs = append(attrs, attribute.String("rpc.service", m.Service))
	}
	return attrs
}

// Tracer opens spans for calls and their attempts.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartCall starts the span covering a whole call.
	StartCall(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// StartAttempt starts a child span for one transmission attempt.
	StartAttempt(ctx context.Context, meta OperationMeta, attempt int) (context.Context, trace.Span)

	// EndSpan ends the span, recording err when non-nil.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartCall(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("call.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) StartAttempt(ctx context.Context, meta OperationMeta, attempt int) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Int("call.attempt", attempt))
	return t.tracer.Start(ctx, meta.SpanName()+".attempt",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartCall(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) StartAttempt(ctx context.Context, meta OperationMeta, _ int) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName()+".attempt")
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
