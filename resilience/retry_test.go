package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/clock/clocktest"
)

// recordingSleep returns immediately and records every requested delay.
func recordingSleep(delays *[]time.Duration) clock.AsyncSleep {
	return clock.SleepFunc(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

var errServer = WithKind(errors.New("internal error"), ServerError)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})
	cfg := r.Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 20*time.Second {
		t.Errorf("MaxDelay = %v, want 20s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
	if cfg.RetryIf(errors.New("client")) {
		t.Error("default RetryIf should not retry client errors")
	}
	if !cfg.RetryIf(errServer) {
		t.Error("default RetryIf should retry server errors")
	}
}

func TestRetry_SuccessOnFirstAttemptRegenerates(t *testing.T) {
	bucket := NewTokenBucket(TokenBucketConfig{Capacity: 10})
	bucket.Acquire(ServerError)
	r := NewRetry(RetryConfig{})

	attempts := 0
	err := r.ExecuteWith(context.Background(), Env{Bucket: bucket}, func(context.Context, int) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Fatalf("ExecuteWith() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if bucket.Available() != 6 {
		t.Errorf("Available() = %d, want 6", bucket.Available())
	}
}

func TestRetry_SuccessOnRetryReleasesPermit(t *testing.T) {
	bucket := NewTokenBucket(TokenBucketConfig{Capacity: 100})
	var delays []time.Duration
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond})

	var seen []int
	err := r.ExecuteWith(context.Background(), Env{Bucket: bucket, Sleep: recordingSleep(&delays)},
		func(_ context.Context, attempt int) error {
			seen = append(seen, attempt)
			if attempt < 3 {
				return errServer
			}
			return nil
		})

	if err != nil {
		t.Fatalf("ExecuteWith() error = %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("attempts = %v, want [1 2 3]", seen)
	}
	// attempt 2's permit is forgotten, attempt 3's is returned.
	if bucket.Available() != 95 {
		t.Errorf("Available() = %d, want 95", bucket.Available())
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(delays) != 2 || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	attempts := 0
	err := r.ExecuteWith(context.Background(), Env{Sleep: recordingSleep(&delays)}, func(context.Context, int) error {
		attempts++
		return errServer
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("error = %v, want ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, errServer) {
		t.Errorf("error = %v, want last attempt error in chain", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_NonRetryableReturnedUnchanged(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5})
	bad := errors.New("validation failed")

	attempts := 0
	err := r.ExecuteWith(context.Background(), Env{}, func(context.Context, int) error {
		attempts++
		return bad
	})

	if err != bad {
		t.Errorf("error = %v, want %v", err, bad)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_QuotaExceeded(t *testing.T) {
	bucket := NewTokenBucket(TokenBucketConfig{Capacity: 20})
	var delays []time.Duration
	var quotaAttempt int
	r := NewRetry(RetryConfig{
		MaxAttempts:     10,
		OnQuotaExceeded: func(attempt int, _ error) { quotaAttempt = attempt },
	})
	timeout := WithKind(errors.New("read timeout"), TransientError)

	attempts := 0
	err := r.ExecuteWith(context.Background(), Env{Bucket: bucket, Sleep: recordingSleep(&delays)},
		func(context.Context, int) error {
			attempts++
			return timeout
		})

	if !errors.Is(err, ErrRetryQuotaExceeded) {
		t.Fatalf("error = %v, want ErrRetryQuotaExceeded", err)
	}
	if !errors.Is(err, timeout) {
		t.Errorf("error = %v, want last attempt error in chain", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if quotaAttempt != 3 {
		t.Errorf("OnQuotaExceeded attempt = %d, want 3", quotaAttempt)
	}
	if bucket.Available() != 0 {
		t.Errorf("Available() = %d, want 0", bucket.Available())
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var delays []time.Duration
	var calls []int
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Strategy:     BackoffConstant,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			calls = append(calls, attempt)
			if delay != 10*time.Millisecond {
				t.Errorf("delay = %v, want 10ms", delay)
			}
		},
	})

	_ = r.ExecuteWith(context.Background(), Env{Sleep: recordingSleep(&delays)}, func(context.Context, int) error {
		return errServer
	})

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", calls)
	}
}

func TestRetry_SleepCancelledReleasesPermit(t *testing.T) {
	bucket := NewTokenBucket(TokenBucketConfig{Capacity: 10})
	ctx, cancel := context.WithCancel(context.Background())
	sleep := clock.SleepFunc(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	err := r.ExecuteWith(ctx, Env{Bucket: bucket, Sleep: sleep}, func(context.Context, int) error {
		return errServer
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if bucket.Available() != 10 {
		t.Errorf("Available() = %d, want 10", bucket.Available())
	}
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetry(RetryConfig{MaxAttempts: 5})

	attempts := 0
	err := r.ExecuteWith(ctx, Env{}, func(context.Context, int) error {
		attempts++
		cancel()
		return errServer
	})

	if err != errServer {
		t.Errorf("error = %v, want %v", err, errServer)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_Delay(t *testing.T) {
	tests := []struct {
		name     string
		config   RetryConfig
		attempts []int
		want     []time.Duration
	}{
		{
			name:     "exponential",
			config:   RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second},
			attempts: []int{1, 2, 3, 4},
			want:     []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second},
		},
		{
			name:     "linear",
			config:   RetryConfig{InitialDelay: time.Second, Strategy: BackoffLinear},
			attempts: []int{1, 2, 3},
			want:     []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		},
		{
			name:     "constant",
			config:   RetryConfig{InitialDelay: 300 * time.Millisecond, Strategy: BackoffConstant},
			attempts: []int{1, 5},
			want:     []time.Duration{300 * time.Millisecond, 300 * time.Millisecond},
		},
		{
			name:     "overflow caps",
			config:   RetryConfig{InitialDelay: time.Second, MaxDelay: 20 * time.Second},
			attempts: []int{200},
			want:     []time.Duration{20 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(tt.config)
			for i, a := range tt.attempts {
				if got := r.Delay(a); got != tt.want[i] {
					t.Errorf("Delay(%d) = %v, want %v", a, got, tt.want[i])
				}
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: time.Second, Jitter: true})
	r.rand = func() float64 { return 0.5 }

	if got := r.Delay(1); got != 750*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 750ms", got)
	}
}

func TestRetry_Execute(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errServer
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetry_BackoffThroughSleepGate(t *testing.T) {
	start := time.Date(2021, 6, 18, 0, 0, 0, 0, time.UTC)
	ts, sleep, gate := clocktest.ControlledTimeAndSleep(start)
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Second})

	var attemptTimes []time.Time
	done := make(chan error, 1)
	go func() {
		done <- r.ExecuteWith(context.Background(), Env{Sleep: sleep}, func(context.Context, int) error {
			attemptTimes = append(attemptTimes, ts.Now())
			return errServer
		})
	}()

	first := gate.MustExpectSleep(t)
	if first.Duration() != time.Second {
		t.Errorf("first backoff = %v, want 1s", first.Duration())
	}
	first.AllowProgress()

	second := gate.MustExpectSleep(t)
	if second.Duration() != 2*time.Second {
		t.Errorf("second backoff = %v, want 2s", second.Duration())
	}
	second.AllowProgress()

	if err := <-done; !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("error = %v, want ErrMaxRetriesExceeded", err)
	}
	want := []time.Time{start, start.Add(time.Second), start.Add(3 * time.Second)}
	for i, at := range attemptTimes {
		if !at.Equal(want[i]) {
			t.Errorf("attempt %d at %v, want %v", i+1, at, want[i])
		}
	}
}

func TestRetry_LimiterFeedback(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 10})
	var delays []time.Duration
	r := NewRetry(RetryConfig{MaxAttempts: 3})
	throttled := WithKind(errors.New("slow down"), ThrottlingError)

	err := r.ExecuteWith(context.Background(), Env{Limiter: limiter, Sleep: recordingSleep(&delays)},
		func(_ context.Context, attempt int) error {
			if attempt == 1 {
				return throttled
			}
			return nil
		})

	if err != nil {
		t.Fatalf("ExecuteWith() error = %v", err)
	}
	// 100 × 0.7 × 1.1
	if got := limiter.CurrentRate(); got < 76.9 || got > 77.1 {
		t.Errorf("CurrentRate() = %v, want 77", got)
	}
}
