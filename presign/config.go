package presign

import (
	"fmt"
	"time"

	"github.com/jonwraymond/callrt/clock"
)

// MaxExpiresIn is the longest presigning window accepted.
const MaxExpiresIn = 7 * 24 * time.Hour

// Config is a validated presigning window. The zero value is not valid;
// use ExpiresIn or Builder.
type Config struct {
	startTime time.Time
	expiresIn time.Duration
}

// ExpiresIn returns a Config that opens now and stays valid for d.
func ExpiresIn(d time.Duration) (Config, error) {
	return Builder().ExpiresIn(d).Build()
}

// Expires returns the window length.
func (c Config) Expires() time.Duration {
	return c.expiresIn
}

// StartTime returns the instant the window opens.
func (c Config) StartTime() time.Time {
	return c.startTime
}

// ExpiresAt returns StartTime + Expires.
func (c Config) ExpiresAt() time.Time {
	return c.startTime.Add(c.expiresIn)
}

// String implements fmt.Stringer.
func (c Config) String() string {
	return fmt.Sprintf("presign window %s + %s", c.startTime.UTC().Format(time.RFC3339), c.expiresIn)
}

// ConfigBuilder assembles a Config. Its methods return the receiver so calls
// can be chained.
type ConfigBuilder struct {
	startTime  *time.Time
	expiresIn  *time.Duration
	timeSource clock.TimeSource
}

// Builder returns an empty ConfigBuilder.
func Builder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// StartTime sets when the window opens.
func (b *ConfigBuilder) StartTime(t time.Time) *ConfigBuilder {
	b.startTime = &t
	return b
}

// ExpiresIn sets the window length. It is required.
func (b *ConfigBuilder) ExpiresIn(d time.Duration) *ConfigBuilder {
	b.expiresIn = &d
	return b
}

// TimeSource sets the clock read by Build when no start time was given.
// Default: clock.SystemClock.
func (b *ConfigBuilder) TimeSource(ts clock.TimeSource) *ConfigBuilder {
	b.timeSource = ts
	return b
}

// Build validates the window. The start time defaults to the time source's
// current time.
func (b *ConfigBuilder) Build() (Config, error) {
	if b.expiresIn == nil {
		return Config{}, ErrExpiresInRequired
	}
	d := *b.expiresIn
	if d < 0 {
		return Config{}, ErrExpiresInNegative
	}
	if d > MaxExpiresIn {
		return Config{}, fmt.Errorf("%w: got %s", ErrExpiresInTooLong, d)
	}

	var start time.Time
	switch {
	case b.startTime != nil:
		start = *b.startTime
	case b.timeSource != nil:
		start = b.timeSource.Now()
	default:
		start = clock.SystemClock{}.Now()
	}
	return Config{startTime: start, expiresIn: d}, nil
}
