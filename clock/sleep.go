package clock

import (
	"context"
	"time"
)

// AsyncSleep suspends the calling goroutine for a duration.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use; a sleeping
//     caller must never block unrelated goroutines.
//   - Context: Sleep must return ctx.Err() promptly once ctx is done.
//   - Errors: Sleep returns nil when the full duration has elapsed.
type AsyncSleep interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleep is the production AsyncSleep, backed by a runtime timer.
type DefaultSleep struct{}

// Sleep waits for d or until ctx is done.
func (DefaultSleep) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepFunc adapts an ordinary function to an AsyncSleep.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// SharedAsyncSleep is a type-erased handle to an AsyncSleep. The zero value
// uses DefaultSleep.
type SharedAsyncSleep struct {
	impl AsyncSleep
}

// NewSharedAsyncSleep wraps impl. A nil impl yields DefaultSleep.
func NewSharedAsyncSleep(impl AsyncSleep) SharedAsyncSleep {
	if shared, ok := impl.(SharedAsyncSleep); ok {
		return shared
	}
	return SharedAsyncSleep{impl: impl}
}

// Sleep delegates to the wrapped implementation.
func (s SharedAsyncSleep) Sleep(ctx context.Context, d time.Duration) error {
	if s.impl == nil {
		return DefaultSleep{}.Sleep(ctx, d)
	}
	return s.impl.Sleep(ctx, d)
}

var (
	_ AsyncSleep = DefaultSleep{}
	_ AsyncSleep = SleepFunc(nil)
	_ AsyncSleep = SharedAsyncSleep{}
)
