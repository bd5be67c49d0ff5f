package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/orchestrator"
	"github.com/jonwraymond/callrt/resilience"
)

// TokenBucketChecker reports on a retry token bucket.
//
// It is unhealthy when not even the cheapest retry can be admitted and
// degraded when the available share of capacity falls below DegradedBelow.
type TokenBucketChecker struct {
	bucket        *resilience.TokenBucket
	degradedBelow float64
}

// NewTokenBucketChecker creates a checker for bucket. A degradedBelow
// outside (0, 1] uses 0.2.
func NewTokenBucketChecker(bucket *resilience.TokenBucket, degradedBelow float64) *TokenBucketChecker {
	if degradedBelow <= 0 || degradedBelow > 1 {
		degradedBelow = 0.2
	}
	return &TokenBucketChecker{bucket: bucket, degradedBelow: degradedBelow}
}

// Name returns "retry_token_bucket".
func (c *TokenBucketChecker) Name() string { return "retry_token_bucket" }

// Check inspects the bucket.
func (c *TokenBucketChecker) Check(context.Context) Result {
	available := c.bucket.Available()
	capacity := c.bucket.Capacity()
	cheapest := min(c.bucket.Cost(resilience.ServerError), c.bucket.Cost(resilience.TransientError))
	details := map[string]any{
		"available": available,
		"capacity":  capacity,
	}

	switch {
	case available < cheapest:
		return Unhealthy("no retry can be admitted", ErrRetryQuotaExhausted).WithDetails(details)
	case float64(available) < c.degradedBelow*float64(capacity):
		return Degraded(fmt.Sprintf("%d of %d retry permits left", available, capacity)).WithDetails(details)
	default:
		return Healthy("retry permits available").WithDetails(details)
	}
}

// RateLimiterChecker reports on an adaptive rate limiter. It is degraded
// while throttling has pushed the send rate below its configured maximum.
type RateLimiterChecker struct {
	limiter *resilience.RateLimiter
}

// NewRateLimiterChecker creates a checker for limiter.
func NewRateLimiterChecker(limiter *resilience.RateLimiter) *RateLimiterChecker {
	return &RateLimiterChecker{limiter: limiter}
}

// Name returns "rate_limiter".
func (c *RateLimiterChecker) Name() string { return "rate_limiter" }

// Check inspects the limiter.
func (c *RateLimiterChecker) Check(context.Context) Result {
	current, ceiling := c.limiter.CurrentRate(), c.limiter.MaxRate()
	details := map[string]any{
		"current_rate": current,
		"max_rate":     ceiling,
		"tokens":       c.limiter.Tokens(),
	}
	if current < ceiling {
		return Degraded(fmt.Sprintf("throttled to %.2f/s", current)).WithDetails(details)
	}
	return Healthy("sending at full rate").WithDetails(details)
}

// CredentialsChecker reports on a credentials provider. It is unhealthy
// when credentials cannot be resolved or are expired and degraded when
// they expire within ExpiryWarning.
type CredentialsChecker struct {
	provider      auth.CredentialsProvider
	ts            clock.TimeSource
	expiryWarning time.Duration
}

// NewCredentialsChecker creates a checker for provider. A nil ts uses the
// system clock.
func NewCredentialsChecker(provider auth.CredentialsProvider, ts clock.TimeSource, expiryWarning time.Duration) *CredentialsChecker {
	if ts == nil {
		ts = clock.SystemClock{}
	}
	return &CredentialsChecker{provider: provider, ts: ts, expiryWarning: expiryWarning}
}

// Name returns "credentials".
func (c *CredentialsChecker) Name() string { return "credentials" }

// Check resolves credentials and inspects their expiry.
func (c *CredentialsChecker) Check(ctx context.Context) Result {
	creds, err := c.provider.Credentials(ctx)
	if err != nil {
		return Unhealthy("credentials unavailable", err)
	}
	details := map[string]any{"source": creds.Source}

	expiry, ok := creds.Expires()
	if !ok {
		return Healthy("credentials do not expire").WithDetails(details)
	}
	now := c.ts.Now()
	details["expires_at"] = expiry.UTC().Format(time.RFC3339)
	switch {
	case creds.ExpiredAt(now):
		return Unhealthy("credentials expired", auth.ErrCredentialsExpired).WithDetails(details)
	case expiry.Sub(now) < c.expiryWarning:
		return Degraded(fmt.Sprintf("credentials expire in %v", expiry.Sub(now))).WithDetails(details)
	default:
		return Healthy("credentials valid").WithDetails(details)
	}
}

// ClientCheckConfig configures ForClient.
type ClientCheckConfig struct {
	// DegradedBelow is the share of token bucket capacity under which the
	// bucket counts as degraded.
	// Default: 0.2
	DegradedBelow float64

	// ExpiryWarning is how long before expiry credentials count as
	// degraded.
	// Default: 5 minutes
	ExpiryWarning time.Duration

	// Aggregator configures the returned aggregator.
	Aggregator AggregatorConfig
}

// ForClient returns an aggregator checking everything c shares across
// calls: its token bucket, its rate limiter in adaptive mode and its
// credentials provider when one is configured.
func ForClient(c *orchestrator.Client, config ClientCheckConfig) *Aggregator {
	if config.ExpiryWarning <= 0 {
		config.ExpiryWarning = 5 * time.Minute
	}
	if config.Aggregator.TimeSource == nil {
		config.Aggregator.TimeSource = c.TimeSource()
	}

	agg := NewAggregator(config.Aggregator)
	agg.Register(NewTokenBucketChecker(c.TokenBucket(), config.DegradedBelow))
	if limiter := c.RateLimiter(); limiter != nil {
		agg.Register(NewRateLimiterChecker(limiter))
	}
	if creds := c.Credentials(); creds != nil {
		agg.Register(NewCredentialsChecker(creds, c.TimeSource(), config.ExpiryWarning))
	}
	return agg
}

var (
	_ Checker = (*TokenBucketChecker)(nil)
	_ Checker = (*RateLimiterChecker)(nil)
	_ Checker = (*CredentialsChecker)(nil)
)
