package health

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_RegisterUnregister(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(fixed("a", Healthy("ok")))
	agg.Register(fixed("b", Healthy("ok")))
	agg.Register(fixed("a", Degraded("replaced")))

	if got, want := agg.Names(), []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	r, err := agg.Check(context.Background(), "a")
	if err != nil {
		t.Fatalf("Check(a) error = %v", err)
	}
	if r.Status != StatusDegraded {
		t.Errorf("Check(a).Status = %v, want replaced checker's %v", r.Status, StatusDegraded)
	}

	agg.Unregister("a")
	if got, want := agg.Names(), []string{"b"}; !slices.Equal(got, want) {
		t.Errorf("Names() after Unregister = %v, want %v", got, want)
	}
	if _, err := agg.Check(context.Background(), "a"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(a) error = %v, want %v", err, ErrCheckerNotFound)
	}
}

func TestAggregator_RunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy(""), Healthy("")}, StatusHealthy},
		{"one degraded", []Result{Healthy(""), Degraded("")}, StatusDegraded},
		{"one unhealthy", []Result{Degraded(""), Unhealthy("", nil), Healthy("")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(AggregatorConfig{})
			for i, r := range tt.results {
				agg.Register(fixed(string(rune('a'+i)), r))
			}
			report := agg.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("Run().Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.results) {
				t.Errorf("len(Checks) = %d, want %d", len(report.Checks), len(tt.results))
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("too late")
	}))

	report := agg.Run(context.Background())
	got := report.Checks["stuck"]
	if got.Status != StatusUnhealthy || !errors.Is(got.Error, ErrCheckTimeout) {
		t.Errorf("stuck check = %v (%v), want unhealthy with %v", got.Status, got.Error, ErrCheckTimeout)
	}
}

func TestAggregator_MaxConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	named := func(name string) Checker {
		return NewCheckerFunc(name, func(context.Context) Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return Healthy("")
		})
	}

	agg := NewAggregator(AggregatorConfig{MaxConcurrency: 1})
	agg.Register(named("a"))
	agg.Register(named("b"))
	agg.Register(named("c"))
	agg.Run(context.Background())

	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrency = %d, want 1", got)
	}
}

func TestAggregator_Checker(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(fixed("bucket", Degraded("low")))

	c := agg.Checker()
	if c.Name() != "aggregate" {
		t.Errorf("Name() = %q, want %q", c.Name(), "aggregate")
	}
	r := c.Check(context.Background())
	if r.Status != StatusDegraded {
		t.Errorf("Status = %v, want %v", r.Status, StatusDegraded)
	}
	if r.Details["bucket"] != "degraded" {
		t.Errorf("Details[bucket] = %v, want degraded", r.Details["bucket"])
	}
}
