// Package clocktest provides deterministic time and sleep doubles for tests.
//
// ControlledTimeAndSleep returns a trio that lets a test drive a goroutine
// which sleeps through clock.AsyncSleep:
//
//   - ManualTimeSource starts at a fixed instant and only advances when a
//     captured sleep is released.
//   - ControlledSleep never resolves on its own. Each Sleep call publishes its
//     duration and blocks until the controller captures and releases it.
//   - SleepGate is the controller side. ExpectSleep rendezvous with exactly
//     one pending Sleep and returns a CapturedSleep; the sleeping goroutine
//     resumes only after CapturedSleep.AllowProgress.
//
// The gate serializes one sleeping goroutine against one controller. It is a
// test construct and must never be wired into production clients.
//
// # Usage
//
//	ts, sleep, gate := clocktest.ControlledTimeAndSleep(time.Unix(0, 0))
//	go func() { _ = sleep.Sleep(ctx, time.Second) }()
//
//	captured := gate.MustExpectSleep(t)
//	// captured.Duration() == time.Second, ts.Now() is still the start time
//	captured.AllowProgress()
package clocktest
