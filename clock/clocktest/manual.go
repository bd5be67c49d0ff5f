package clocktest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/callrt/clock"
)

// DefaultExpectTimeout bounds how long SleepGate.ExpectSleep waits for a
// sleeping goroutine to arrive.
const DefaultExpectTimeout = time.Second

// sleepLog is the ordered record of released sleep durations shared by a
// ManualTimeSource and its ControlledSleep.
type sleepLog struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (l *sleepLog) record(d time.Duration) {
	l.mu.Lock()
	l.durations = append(l.durations, d)
	l.mu.Unlock()
}

func (l *sleepLog) total() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sum time.Duration
	for _, d := range l.durations {
		sum += d
	}
	return sum
}

func (l *sleepLog) snapshot() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]time.Duration, len(l.durations))
	copy(out, l.durations)
	return out
}

// ManualTimeSource reports start plus the sum of every released sleep. It
// never advances on its own and must be paired with the ControlledSleep
// returned alongside it.
type ManualTimeSource struct {
	start time.Time
	log   *sleepLog
}

// Now returns start + Σ released durations.
func (m *ManualTimeSource) Now() time.Time {
	return m.start.Add(m.log.total())
}

// Elapsed returns the sum of released durations.
func (m *ManualTimeSource) Elapsed() time.Duration {
	return m.log.total()
}

// Sleeps returns the released durations in release order.
func (m *ManualTimeSource) Sleeps() []time.Duration {
	return m.log.snapshot()
}

// pendingSleep is the single-slot record a sleeping goroutine publishes.
type pendingSleep struct {
	duration time.Duration
	release  chan struct{}

	mu        sync.Mutex
	released  bool
	abandoned bool
}

// abandon marks a captured sleep as ended by its context. It reports false
// when the sleep was already released, which then wins.
func (p *pendingSleep) abandon() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return false
	}
	p.abandoned = true
	return true
}

// handshake is the state shared by a ControlledSleep and its SleepGate.
type handshake struct {
	mu      sync.Mutex
	pending *pendingSleep
	active  bool

	// rendezvous is unbuffered: a send completes only when the gate is
	// receiving, so both parties pass the barrier together.
	rendezvous chan struct{}
}

// ControlledSleep is a clock.AsyncSleep whose sleeps resolve only when
// released through the paired SleepGate.
type ControlledSleep struct {
	hs *handshake
}

// Sleep publishes d and blocks until the gate captures and releases it, or
// until ctx is done. Calling Sleep while another Sleep on the same instance
// has not returned is a usage error and panics.
func (s *ControlledSleep) Sleep(ctx context.Context, d time.Duration) error {
	hs := s.hs

	hs.mu.Lock()
	if hs.active || hs.pending != nil {
		hs.mu.Unlock()
		panic(fmt.Sprintf("clocktest: Sleep(%v) called while a previous sleep is still pending", d))
	}
	p := &pendingSleep{duration: d, release: make(chan struct{})}
	hs.pending = p
	hs.active = true
	hs.mu.Unlock()

	defer func() {
		hs.mu.Lock()
		if hs.pending == p {
			hs.pending = nil
		}
		hs.active = false
		hs.mu.Unlock()
	}()

	select {
	case hs.rendezvous <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		if !p.abandon() {
			return nil
		}
		return ctx.Err()
	}
}

// SleepGate is the controller side of a ControlledSleep. It is meant to be
// driven by a single test goroutine.
type SleepGate struct {
	hs      *handshake
	log     *sleepLog
	timeout time.Duration
}

// SetTimeout overrides how long ExpectSleep waits. Non-positive values restore
// DefaultExpectTimeout.
func (g *SleepGate) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultExpectTimeout
	}
	g.timeout = d
}

// ExpectSleep waits for exactly one pending Sleep and captures it. The
// sleeping goroutine stays blocked until the returned CapturedSleep is
// released. Returns ErrExpectSleepTimeout if nothing arrives within the gate
// timeout.
func (g *SleepGate) ExpectSleep(ctx context.Context) (*CapturedSleep, error) {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-g.hs.rendezvous:
	case <-timer.C:
		return nil, ErrExpectSleepTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.hs.mu.Lock()
	p := g.hs.pending
	g.hs.pending = nil
	g.hs.mu.Unlock()

	if p == nil {
		return nil, ErrNoPendingSleep
	}

	return &CapturedSleep{sleep: p, log: g.log}, nil
}

// MustExpectSleep is ExpectSleep for test bodies: it fails the test on
// timeout and releases the capture at test cleanup if the test never does.
func (g *SleepGate) MustExpectSleep(t testing.TB) *CapturedSleep {
	t.Helper()

	captured, err := g.ExpectSleep(context.Background())
	if err != nil {
		t.Fatalf("expect sleep: %v", err)
	}
	t.Cleanup(captured.AllowProgress)
	return captured
}

// CapturedSleep is a single-use release token for one captured sleep.
type CapturedSleep struct {
	sleep *pendingSleep
	log   *sleepLog
	once  sync.Once
}

// Duration returns the duration passed to Sleep.
func (c *CapturedSleep) Duration() time.Duration {
	return c.sleep.duration
}

// AllowProgress records the duration on the manual clock and lets the
// sleeping goroutine return. A sleep that already returned through its
// context is not recorded. Calls after the first are no-ops.
func (c *CapturedSleep) AllowProgress() {
	c.once.Do(func() {
		p := c.sleep
		p.mu.Lock()
		if !p.abandoned {
			p.released = true
			c.log.record(p.duration)
		}
		p.mu.Unlock()
		close(p.release)
	})
}

// ControlledTimeAndSleep returns a ManualTimeSource starting at start, a
// ControlledSleep that advances it, and the SleepGate controlling both.
func ControlledTimeAndSleep(start time.Time) (*ManualTimeSource, *ControlledSleep, *SleepGate) {
	log := &sleepLog{}
	hs := &handshake{rendezvous: make(chan struct{})}

	return &ManualTimeSource{start: start, log: log},
		&ControlledSleep{hs: hs},
		&SleepGate{hs: hs, log: log, timeout: DefaultExpectTimeout}
}

var (
	_ clock.TimeSource = (*ManualTimeSource)(nil)
	_ clock.AsyncSleep = (*ControlledSleep)(nil)
)
