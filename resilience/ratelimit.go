package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the adaptive send-rate limiter.
type RateLimiterConfig struct {
	// Rate is the maximum number of attempts per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// MinRate is the floor OnThrottle never goes below.
	// Default: 0.5
	MinRate float64

	// Backoff multiplies the current rate on every throttling error.
	// Default: 0.7
	Backoff float64

	// Recovery multiplies the current rate on every success, up to Rate.
	// Default: 1.1
	Recovery float64

	// FailFast makes Admit refuse an attempt when no token is available
	// instead of waiting for one.
	// Default: false
	FailFast bool

	// MaxWait is the maximum time Wait blocks.
	// Default: 1 second
	MaxWait time.Duration
}

// RateLimiter limits how fast a client sends attempts and adapts that rate
// to throttling feedback.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Wait honors cancellation.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter

	mu      sync.Mutex
	current float64
}

// NewRateLimiter creates a new rate limiter running at the configured rate.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MinRate <= 0 {
		config.MinRate = 0.5
	}
	if config.MinRate > config.Rate {
		config.MinRate = config.Rate
	}
	if config.Backoff <= 0 || config.Backoff >= 1 {
		config.Backoff = 0.7
	}
	if config.Recovery <= 1 {
		config.Recovery = 1.1
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
		current: config.Rate,
	}
}

// Allow reports whether an attempt may be sent now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks until a token is available, at most MaxWait.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()
	if err := rl.limiter.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}
	return nil
}

// Admit gates one attempt: it waits through Wait, or with FailFast returns
// ErrRateLimitExceeded at once when no token is available.
func (rl *RateLimiter) Admit(ctx context.Context) error {
	if !rl.config.FailFast {
		return rl.Wait(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return nil
}

// OnThrottle lowers the send rate after a throttling error.
func (rl *RateLimiter) OnThrottle() {
	rl.adjust(rl.config.Backoff)
}

// OnSuccess raises the send rate back toward the configured maximum.
func (rl *RateLimiter) OnSuccess() {
	rl.adjust(rl.config.Recovery)
}

func (rl *RateLimiter) adjust(factor float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	next := min(max(rl.current*factor, rl.config.MinRate), rl.config.Rate)
	if next == rl.current {
		return
	}
	rl.current = next
	rl.limiter.SetLimit(rate.Limit(next))
}

// CurrentRate returns the send rate in attempts per second.
func (rl *RateLimiter) CurrentRate() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.current
}

// Tokens returns the number of tokens available now.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

// MaxRate returns the configured rate, the ceiling OnSuccess recovers to.
func (rl *RateLimiter) MaxRate() float64 {
	return rl.config.Rate
}
