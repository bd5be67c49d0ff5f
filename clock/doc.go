// Package clock provides the time and sleep capabilities used by the request
// orchestrator.
//
// Pipeline code never calls time.Now or time.Sleep directly. It reads the
// current time through a TimeSource and suspends through an AsyncSleep, both
// of which are injected through the call's config bag. Production clients use
// SystemClock and DefaultSleep; tests swap in the controllable variants from
// the clocktest subpackage.
//
// # Usage
//
//	ts := clock.NewSharedTimeSource(clock.StaticTimeSource(time.Unix(0, 0)))
//	now := ts.Now()
//
//	sleep := clock.NewSharedAsyncSleep(clock.DefaultSleep{})
//	if err := sleep.Sleep(ctx, 100*time.Millisecond); err != nil {
//	    return err // ctx was cancelled
//	}
package clock
