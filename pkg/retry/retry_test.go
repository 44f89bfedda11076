package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.delays = append(f.delays, d)
	return nil
}

var errTransient = errors.New("transient")

func TestDo_DefaultIsSingleAttempt(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	calls := 0
	n, err := doWithSleeper(context.Background(), DefaultConfig(), func(context.Context, int) error {
		calls++
		return errTransient
	}, s)
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if n != 1 || calls != 1 {
		t.Fatalf("expected 1 attempt, got n=%d calls=%d", n, calls)
	}
	if len(s.delays) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(s.delays))
	}
}

func TestDo_ZeroAttemptsStillRunsOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	n, err := doWithSleeper(context.Background(), Config{}, func(context.Context, int) error {
		calls++
		return nil
	}, &fakeSleeper{})
	if err != nil || n != 1 || calls != 1 {
		t.Fatalf("got n=%d calls=%d err=%v", n, calls, err)
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	cfg := Config{Attempts: 3, InitDelay: time.Second, MaxDelay: 30 * time.Second, Strategy: Exponential}

	var seen []int
	n, err := doWithSleeper(context.Background(), cfg, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return errTransient
		}
		return nil
	}, s)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("unexpected attempt indices %v", seen)
	}
	if len(s.delays) != 2 || s.delays[0] != time.Second || s.delays[1] != 2*time.Second {
		t.Fatalf("unexpected delays %v", s.delays)
	}
}

func TestDo_AllFailNoSleepAfterLast(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	cfg := Config{Attempts: 3, InitDelay: time.Second, Strategy: Constant}
	n, err := doWithSleeper(context.Background(), cfg, func(context.Context, int) error {
		return errTransient
	}, s)
	if !errors.Is(err, errTransient) || n != 3 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
	if len(s.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(s.delays))
	}
}

func TestDo_RetryableFalseStops(t *testing.T) {
	t.Parallel()
	permanent := errors.New("permanent")
	cfg := Config{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
	}
	n, err := doWithSleeper(context.Background(), cfg, func(context.Context, int) error {
		return permanent
	}, &fakeSleeper{})
	if !errors.Is(err, permanent) || n != 1 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
}

func TestDo_StopErrorUnwrapped(t *testing.T) {
	t.Parallel()
	inner := errors.New("bad payload")
	n, err := doWithSleeper(context.Background(), Config{Attempts: 4}, func(context.Context, int) error {
		return Stop(inner)
	}, &fakeSleeper{})
	if n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
	var stop *StopError
	if errors.As(err, &stop) {
		t.Fatal("StopError should be unwrapped")
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

func TestDo_CancelledWaitKeepsOperationError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	n, err := doWithSleeper(ctx, Config{Attempts: 3, InitDelay: time.Hour}, func(context.Context, int) error {
		cancel()
		return errTransient
	}, &fakeSleeper{})
	if n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected operation error, got %v", err)
	}
}

func TestDo_RealSleeperHonoursContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	n, err := Do(ctx, Config{Attempts: 3, InitDelay: time.Minute}, func(context.Context, int) error {
		return errTransient
	})
	if n != 1 || !errors.Is(err, errTransient) {
		t.Fatalf("got n=%d err=%v", n, err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("Do ignored context cancellation while sleeping")
	}
}

func TestCalcDelay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		attempt int
		want    time.Duration
	}{
		{"exp 0", Config{InitDelay: time.Second, Strategy: Exponential}, 0, time.Second},
		{"exp 3", Config{InitDelay: time.Second, Strategy: Exponential}, 3, 8 * time.Second},
		{"exp capped", Config{InitDelay: time.Second, MaxDelay: 5 * time.Second, Strategy: Exponential}, 4, 5 * time.Second},
		{"linear 2", Config{InitDelay: time.Second, Strategy: Linear}, 2, 3 * time.Second},
		{"constant", Config{InitDelay: 250 * time.Millisecond, Strategy: Constant}, 7, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalcDelay(tt.cfg, tt.attempt); got != tt.want {
				t.Errorf("CalcDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalcDelay_JitterBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{InitDelay: time.Second, Strategy: Constant, Jitter: true}
	for range 100 {
		d := CalcDelay(cfg, 0)
		if d < 750*time.Millisecond || d > 1250*time.Millisecond {
			t.Fatalf("jittered delay %v out of ±25%% range", d)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (Config{Attempts: 11}).Validate(); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if err := (Config{Attempts: 2, InitDelay: -time.Second}).Validate(); !errors.Is(err, ErrNegativeDelay) {
		t.Fatalf("expected ErrNegativeDelay, got %v", err)
	}
}
