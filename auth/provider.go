package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/callrt/clock"
)

// CachingProviderConfig configures a CachingProvider.
type CachingProviderConfig struct {
	// RefreshBefore is how long before expiry cached credentials are
	// refreshed.
	// Default: 5 minutes
	RefreshBefore time.Duration

	// TimeSource decides when credentials count as expired.
	// Default: clock.SystemClock
	TimeSource clock.TimeSource
}

// CachingProvider caches credentials from a slower source.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent refreshes share one
//     call to the source.
//   - Errors: when a refresh fails, still-valid cached credentials are
//     returned instead of the error.
type CachingProvider struct {
	source CredentialsProvider
	config CachingProviderConfig

	mu     sync.RWMutex
	cached *Credentials
	group  singleflight.Group
}

// NewCachingProvider wraps source.
func NewCachingProvider(source CredentialsProvider, config CachingProviderConfig) *CachingProvider {
	if config.RefreshBefore <= 0 {
		config.RefreshBefore = 5 * time.Minute
	}
	if config.TimeSource == nil {
		config.TimeSource = clock.SystemClock{}
	}
	return &CachingProvider{source: source, config: config}
}

// Credentials returns cached credentials, refreshing them when they are
// missing or about to expire.
func (p *CachingProvider) Credentials(ctx context.Context) (Credentials, error) {
	now := p.config.TimeSource.Now()

	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()
	if cached != nil && !cached.ExpiredAt(now.Add(p.config.RefreshBefore)) {
		return *cached, nil
	}

	v, err, _ := p.group.Do("refresh", func() (any, error) {
		creds, err := p.source.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		if creds.ExpiredAt(p.config.TimeSource.Now()) {
			return nil, fmt.Errorf("%w: source returned credentials that expired at %s",
				ErrCredentialsExpired, creds.Expiry.UTC().Format(time.RFC3339))
		}
		p.mu.Lock()
		p.cached = &creds
		p.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		if cached != nil && !cached.ExpiredAt(now) {
			return *cached, nil
		}
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

// Invalidate drops the cached credentials.
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

var _ CredentialsProvider = (*CachingProvider)(nil)
