package health

import "errors"

var (
	// ErrCheckTimeout indicates a check did not finish before the
	// aggregator's deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrRetryQuotaExhausted indicates the token bucket cannot admit even
	// the cheapest retry.
	ErrRetryQuotaExhausted = errors.New("health: retry quota exhausted")
)
