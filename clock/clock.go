package clock

import "time"

// TimeSource reports the current time.
//
// Contract:
// - Concurrency: Now must be safe for any number of concurrent readers.
// - Side effects: Now must not advance or otherwise mutate the source.
type TimeSource interface {
	Now() time.Time
}

// SystemClock is a TimeSource backed by the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// StaticTimeSource is a TimeSource that always reports the same instant.
type StaticTimeSource time.Time

// NewStaticTimeSource returns a StaticTimeSource fixed at t.
func NewStaticTimeSource(t time.Time) StaticTimeSource {
	return StaticTimeSource(t)
}

// Now returns the fixed instant.
func (s StaticTimeSource) Now() time.Time {
	return time.Time(s)
}

// TimeSourceFunc adapts an ordinary function to a TimeSource.
type TimeSourceFunc func() time.Time

// Now calls f.
func (f TimeSourceFunc) Now() time.Time {
	return f()
}

// SharedTimeSource is a type-erased handle to a TimeSource that every pipeline
// stage reading "now" shares. It is a plain value and may be copied freely.
// The zero value reports wall-clock time.
type SharedTimeSource struct {
	src TimeSource
}

// NewSharedTimeSource wraps src. A nil src yields the system clock.
func NewSharedTimeSource(src TimeSource) SharedTimeSource {
	if shared, ok := src.(SharedTimeSource); ok {
		return shared
	}
	return SharedTimeSource{src: src}
}

// Now returns the current time from the wrapped source.
func (s SharedTimeSource) Now() time.Time {
	if s.src == nil {
		return time.Now()
	}
	return s.src.Now()
}

// Unwrap returns the wrapped TimeSource, or SystemClock for the zero value.
func (s SharedTimeSource) Unwrap() TimeSource {
	if s.src == nil {
		return SystemClock{}
	}
	return s.src
}

var (
	_ TimeSource = SystemClock{}
	_ TimeSource = StaticTimeSource{}
	_ TimeSource = TimeSourceFunc(nil)
	_ TimeSource = SharedTimeSource{}
)
