package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/callrt/clock"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one run of all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxConcurrency limits how many checks run at once. Zero or less
	// runs every check concurrently; one runs them in registration order.
	// Default: 0
	MaxConcurrency int

	// TimeSource stamps results.
	// Default: clock.SystemClock
	TimeSource clock.TimeSource
}

// Report is the outcome of one aggregated run.
type Report struct {
	Status    Status
	Checks    map[string]Result
	Timestamp time.Time
}

// Aggregator runs a set of checkers and combines their results.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: a run ends at the earlier of ctx and Timeout; unfinished
//     checks report ErrCheckTimeout.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an empty aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.TimeSource == nil {
		config.TimeSource = clock.SystemClock{}
	}
	return &Aggregator{config: config, checkers: make(map[string]Checker)}
}

// Register adds checker under its name, replacing any previous checker of
// that name.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := checker.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes the checker registered under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.checkers, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// Names returns the registered checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.run(ctx, checker), nil
}

// Run executes every registered check.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := make([]Checker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, a.checkers[name])
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	if a.config.MaxConcurrency > 0 {
		g.SetLimit(a.config.MaxConcurrency)
	}
	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = a.run(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Result, len(checkers)),
		Timestamp: a.config.TimeSource.Now(),
	}
	for i, checker := range checkers {
		report.Checks[checker.Name()] = results[i]
		report.Status = max(report.Status, results[i].Status)
	}
	return report
}

func (a *Aggregator) run(ctx context.Context, checker Checker) Result {
	start := a.config.TimeSource.Now()
	done := make(chan Result, 1)
	go func() { done <- checker.Check(ctx) }()

	var result Result
	select {
	case result = <-done:
	case <-ctx.Done():
		result = Unhealthy("check timed out", ErrCheckTimeout)
	}
	result.Timestamp = start
	result.Duration = a.config.TimeSource.Now().Sub(start)
	return result
}

// Checker returns the aggregator as a single Checker named "aggregate"
// whose status is the worst of its checks.
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		report := a.Run(ctx)
		details := make(map[string]any, len(report.Checks))
		for name, r := range report.Checks {
			details[name] = r.Status.String()
		}
		var message string
		switch report.Status {
		case StatusHealthy:
			message = "all checks passed"
		case StatusDegraded:
			message = "some checks degraded"
		default:
			message = "some checks failed"
		}
		return Result{Status: report.Status, Message: message, Details: details}
	})
}
