package health

import (
	"context"
	"time"
)

// Status is the health of one component.
type Status int

// Statuses, from best to worst.
const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string
	Details map[string]any
	Error   error

	// Duration and Timestamp are filled in by the Aggregator.
	Duration  time.Duration
	Timestamp time.Time
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the health of one component.
//
// Contract:
//   - Concurrency: Check must be safe for concurrent use.
//   - Context: Check should return promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

// NewCheckerFunc creates a named Checker from fn.
func NewCheckerFunc(name string, fn func(ctx context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (c *CheckerFunc) Name() string { return c.name }

// Check calls the function.
func (c *CheckerFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

var _ Checker = (*CheckerFunc)(nil)
