// Package resilience provides the retry machinery used by the call
// orchestrator.
//
// # Components
//
//   - TokenBucket: a client-wide, cost-weighted pool of retry permits. Every
//     retry must acquire a permit first; when the pool runs dry retries stop
//     immediately instead of piling onto a struggling service.
//   - Classify: maps an error onto an ErrorKind (transient, throttling,
//     server, client) which decides both retryability and retry cost.
//   - Retry: attempts an operation with exponential backoff, sleeping
//     through an injectable clock.AsyncSleep and consulting the TokenBucket
//     before every retry.
//   - RateLimiter: an adaptive client send-rate limiter that slows down on
//     throttling responses and recovers on success.
//   - Timeout: bounds a single attempt.
//
// # Usage
//
//	bucket := resilience.NewTokenBucket(resilience.TokenBucketConfig{})
//	retry := resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})
//
//	err := retry.ExecuteWith(ctx, resilience.Env{Bucket: bucket}, func(ctx context.Context, attempt int) error {
//	    return send(ctx)
//	})
//	if errors.Is(err, resilience.ErrRetryQuotaExceeded) {
//	    // the client-wide retry budget is exhausted
//	}
package resilience
