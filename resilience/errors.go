package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRetryQuotaExceeded is returned when the token bucket refuses a retry.
	ErrRetryQuotaExceeded = errors.New("resilience: retry quota exceeded")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)
