package orchestrator

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/interceptor"
	"github.com/jonwraymond/callrt/observe"
	"github.com/jonwraymond/callrt/resilience"
)

// RetryMode selects how attempts are admitted.
type RetryMode string

const (
	// RetryModeStandard gates retries with the token bucket only.
	RetryModeStandard RetryMode = "standard"
	// RetryModeAdaptive also paces every attempt with a client-side rate
	// limiter that slows down when the service throttles.
	RetryModeAdaptive RetryMode = "adaptive"
)

// ParseRetryMode parses a retry mode name, case-insensitively.
func ParseRetryMode(s string) (RetryMode, error) {
	switch RetryMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RetryModeStandard:
		return RetryModeStandard, nil
	case RetryModeAdaptive:
		return RetryModeAdaptive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRetryMode, s)
	}
}

// HTTPClient sends requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	// Interceptors are client-scope hooks. They run before call-scope hooks
	// in every phase.
	Interceptors []interceptor.Interceptor

	// Plugins contribute client-wide config layers and interceptors, after
	// the standard token bucket plugin.
	Plugins []RuntimePlugin

	// Signer signs every attempt. Nil sends requests unsigned.
	Signer auth.Signer

	// Credentials resolves the credentials passed to Signer. Required when
	// Signer is set, unless a client plugin installs a provider.
	Credentials auth.CredentialsProvider

	// HTTPClient transmits requests.
	// Default: &http.Client{}
	HTTPClient HTTPClient

	// TimeSource supplies the signing time.
	// Default: clock.SystemClock
	TimeSource clock.TimeSource

	// Sleep waits out retry backoff.
	// Default: clock.DefaultSleep
	Sleep clock.AsyncSleep

	// Retry configures attempts and backoff.
	Retry resilience.RetryConfig

	// RetryMode selects standard or adaptive admission.
	// Default: RetryModeStandard
	RetryMode RetryMode

	// TokenBucket configures the client's retry token bucket. Ignored when
	// SharedTokenBucket is set.
	TokenBucket resilience.TokenBucketConfig

	// SharedTokenBucket lets several clients draw from one bucket.
	SharedTokenBucket *resilience.TokenBucket

	// RateLimiter configures the adaptive mode limiter.
	RateLimiter resilience.RateLimiterConfig

	// AttemptTimeout bounds a single transmission including reading the
	// response body. Zero disables it.
	AttemptTimeout time.Duration

	// MaxErrorBodyBytes caps how much of an error response body is kept on
	// a ResponseError.
	// Default: 4096
	MaxErrorBodyBytes int64

	// Middleware traces, measures and logs calls.
	// Default: observe.NopMiddleware()
	Middleware *observe.Middleware
}

func (c *Config) applyDefaults() error {
	mode, err := ParseRetryMode(string(c.RetryMode))
	if err != nil {
		return err
	}
	c.RetryMode = mode
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.MaxErrorBodyBytes <= 0 {
		c.MaxErrorBodyBytes = 4096
	}
	if c.Middleware == nil {
		c.Middleware = observe.NopMiddleware()
	}
	if c.TokenBucket.Logger == nil {
		c.TokenBucket.Logger = c.Middleware.Logger()
	}
	return nil
}
