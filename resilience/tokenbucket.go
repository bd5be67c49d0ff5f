package resilience

import (
	"context"
	"sync"

	"github.com/jonwraymond/callrt/observe"
)

// Token bucket defaults.
const (
	DefaultCapacity           = 500
	DefaultRetryCost          = 5
	DefaultTimeoutRetryCost   = DefaultRetryCost * 2
	DefaultRegenerationAmount = 1
)

// TokenBucketConfig configures the retry token bucket.
type TokenBucketConfig struct {
	// Capacity is the maximum and initial number of permits.
	// Default: 500
	Capacity int

	// RetryCost is the number of permits a retry after a non-transient
	// error costs.
	// Default: 5
	RetryCost int

	// TimeoutRetryCost is the number of permits a retry after a transient
	// error costs.
	// Default: 2 × RetryCost
	TimeoutRetryCost int

	// RegenerationAmount is the number of permits RegenerateToken adds.
	// Default: 1
	RegenerationAmount int

	// Logger receives a debug entry per regeneration.
	// Default: no logging
	Logger observe.Logger
}

// TokenBucket is a client-wide pool of retry permits.
//
// Contract:
//   - Concurrency: safe for concurrent use; every acquisition is atomic with
//     no lost updates.
//   - Bounds: the available count never drops below zero nor exceeds
//     Capacity.
//   - Acquire never blocks; an insufficient pool is a refusal.
type TokenBucket struct {
	config TokenBucketConfig

	mu        sync.Mutex
	available int
}

// NewTokenBucket creates a full token bucket.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.RetryCost <= 0 {
		config.RetryCost = DefaultRetryCost
	}
	if config.TimeoutRetryCost <= 0 {
		config.TimeoutRetryCost = config.RetryCost * 2
	}
	if config.RegenerationAmount <= 0 {
		config.RegenerationAmount = DefaultRegenerationAmount
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &TokenBucket{config: config, available: config.Capacity}
}

// Cost returns the permits a retry after an error of the given kind costs.
func (b *TokenBucket) Cost(kind ErrorKind) int {
	if kind == TransientError {
		return b.config.TimeoutRetryCost
	}
	return b.config.RetryCost
}

// Acquire takes the cost of one retry after an error of the given kind.
// It returns false, without taking anything, when the pool holds fewer
// permits than the cost.
func (b *TokenBucket) Acquire(kind ErrorKind) (*Permit, bool) {
	cost := b.Cost(kind)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.available < cost {
		return nil, false
	}
	b.available -= cost
	return &Permit{bucket: b, cost: cost}, true
}

// RegenerateToken adds RegenerationAmount permits, capped at Capacity.
func (b *TokenBucket) RegenerateToken() {
	b.mu.Lock()
	if b.available >= b.config.Capacity {
		b.mu.Unlock()
		return
	}
	b.available = min(b.available+b.config.RegenerationAmount, b.config.Capacity)
	available := b.available
	b.mu.Unlock()

	b.config.Logger.Debug(context.Background(), "regenerated retry token",
		observe.Field{Key: "amount", Value: b.config.RegenerationAmount},
		observe.Field{Key: "available", Value: available},
	)
}

// Available returns the current number of permits.
func (b *TokenBucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Capacity returns the maximum number of permits.
func (b *TokenBucket) Capacity() int {
	return b.config.Capacity
}

// Config returns the effective configuration.
func (b *TokenBucket) Config() TokenBucketConfig {
	return b.config
}

func (b *TokenBucket) give(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = min(b.available+n, b.config.Capacity)
}

// Permit is a grant of retry permits held for one retry attempt.
// Exactly one of Release or Forget takes effect; later calls are no-ops.
type Permit struct {
	bucket *TokenBucket
	cost   int
	once   sync.Once
}

// Cost returns the number of permits held.
func (p *Permit) Cost() int {
	return p.cost
}

// Release returns the held permits to the bucket.
func (p *Permit) Release() {
	p.once.Do(func() { p.bucket.give(p.cost) })
}

// Forget leaves the held permits consumed.
func (p *Permit) Forget() {
	p.once.Do(func() {})
}
