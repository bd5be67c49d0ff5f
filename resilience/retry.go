package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/callrt/clock"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential doubles the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 20s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter scales each delay by a random factor in [0.5, 1.0).
	// Default: false
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Default: Classify(err).Retryable()
	RetryIf func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)

	// OnQuotaExceeded is called when the token bucket refuses a retry.
	OnQuotaExceeded func(attempt int, err error)
}

// Env carries the collaborators a single execution uses. The zero value
// retries without a token bucket or rate limiter and sleeps on the wall
// clock.
type Env struct {
	// Bucket gates every retry. Nil disables admission control.
	Bucket *TokenBucket

	// Sleep waits out backoff delays.
	Sleep clock.AsyncSleep

	// Limiter throttles every attempt, including the first.
	Limiter *RateLimiter
}

// Retry implements retry with backoff and token-bucket admission.
type Retry struct {
	config RetryConfig
	rand   func() float64
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 20 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return Classify(err).Retryable() }
	}
	return &Retry{config: config, rand: rand.Float64}
}

// Execute runs op with retries on the wall clock and no admission control.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	return r.ExecuteWith(ctx, Env{}, func(ctx context.Context, _ int) error {
		return op(ctx)
	})
}

// ExecuteWith runs op, retrying retryable failures. attempt is 1-based.
//
// Before every retry a permit is acquired from env.Bucket; a refusal ends
// the execution with ErrRetryQuotaExceeded wrapping the last error. When
// the attempts run out the last error is returned wrapped in
// ErrMaxRetriesExceeded. A non-retryable error is returned unchanged.
//
// On success the permit held for the attempt goes back to the bucket; a
// success on the first attempt regenerates one token instead. Permits of
// failed attempts stay consumed.
func (r *Retry) ExecuteWith(ctx context.Context, env Env, op func(ctx context.Context, attempt int) error) error {
	sleep := env.Sleep
	if sleep == nil {
		sleep = clock.DefaultSleep{}
	}

	var permit *Permit
	for attempt := 1; ; attempt++ {
		if env.Limiter != nil {
			if err := env.Limiter.Admit(ctx); err != nil {
				if permit != nil {
					permit.Release()
				}
				return err
			}
		}

		err := op(ctx, attempt)
		if err == nil {
			switch {
			case permit != nil:
				permit.Release()
			case env.Bucket != nil:
				env.Bucket.RegenerateToken()
			}
			if env.Limiter != nil {
				env.Limiter.OnSuccess()
			}
			return nil
		}

		if permit != nil {
			permit.Forget()
			permit = nil
		}

		kind := Classify(err)
		if kind == ThrottlingError && env.Limiter != nil {
			env.Limiter.OnThrottle()
		}
		if ctx.Err() != nil || !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		if env.Bucket != nil {
			p, ok := env.Bucket.Acquire(kind)
			if !ok {
				if r.config.OnQuotaExceeded != nil {
					r.config.OnQuotaExceeded(attempt, err)
				}
				return fmt.Errorf("%w: %w", ErrRetryQuotaExceeded, err)
			}
			permit = p
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if serr := sleep.Sleep(ctx, delay); serr != nil {
			if permit != nil {
				permit.Release()
			}
			return serr
		}
	}
}

// Delay returns the backoff before the retry that follows attempt.
func (r *Retry) Delay(attempt int) time.Duration {
	var raw float64
	switch r.config.Strategy {
	case BackoffConstant:
		raw = float64(r.config.InitialDelay)
	case BackoffLinear:
		raw = float64(r.config.InitialDelay) * float64(attempt)
	default:
		raw = float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	}

	delay := r.config.MaxDelay
	if raw < float64(r.config.MaxDelay) {
		delay = time.Duration(raw)
	}
	if r.config.Jitter && delay > 0 {
		delay = time.Duration(float64(delay) * (0.5 + r.rand()/2))
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
