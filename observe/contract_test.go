package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_NopWithOperation(t *testing.T) {
	if NopLogger().WithOperation(OperationMeta{Operation: "noop"}) == nil {
		t.Fatal("WithOperation should return a non-nil logger")
	}
}

func TestMetricsContract_NopNoPanic(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	meta := OperationMeta{Operation: "noop"}
	m.RecordCall(ctx, meta, time.Millisecond, nil)
	m.RecordAttempt(ctx, meta, 2, nil)
	m.RecordQuotaDenied(ctx, meta)
}

var (
	_ Logger  = NopLogger()
	_ Metrics = NopMetrics()
	_ Tracer  = NopTracer()
)
