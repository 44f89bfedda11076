// Package retry runs an operation a bounded number of times with backoff.
//
// A scan category is retried only inside its own slot: the caller passes a
// Retryable predicate so permanent failures (a backend that answered with
// something unparsable) stop immediately while transport failures may be
// attempted again.
//
//	attempts, err := retry.Do(ctx, cfg, func(ctx context.Context, attempt int) error {
//	    return call(ctx)
//	})
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
)

// Strategy defines the backoff algorithm.
type Strategy int

const (
	// Exponential doubles the delay each attempt: initDelay * 2^attempt.
	Exponential Strategy = iota
	// Linear increases the delay linearly: initDelay * (attempt+1).
	Linear
	// Constant uses the same delay between every attempt.
	Constant
)

// Config controls retry behaviour.
type Config struct {
	Attempts  int           // Total attempts including the first. Values below 1 mean 1.
	InitDelay time.Duration // Base delay before the first retry.
	MaxDelay  time.Duration // Upper bound on any single delay.
	Strategy  Strategy
	Jitter    bool // ±25% random jitter on each delay.

	// Retryable reports whether a failed attempt may be repeated.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultConfig is a single attempt: scans are not retried unless configured.
func DefaultConfig() Config {
	return Config{
		Attempts:  defaults.RetryAttempts,
		InitDelay: duration.RetryInit,
		MaxDelay:  duration.RetryMax,
		Strategy:  Exponential,
		Jitter:    true,
	}
}

// Validate rejects configurations that cannot be run.
func (c Config) Validate() error {
	switch {
	case c.Attempts > defaults.RetryMaxAttempts:
		return ErrTooManyAttempts
	case c.InitDelay < 0 || c.MaxDelay < 0:
		return ErrNegativeDelay
	}
	return nil
}

var (
	// ErrTooManyAttempts is returned by Validate above defaults.RetryMaxAttempts.
	ErrTooManyAttempts = errors.New("retry: too many attempts")
	// ErrNegativeDelay is returned by Validate for negative delays.
	ErrNegativeDelay = errors.New("retry: negative delay")
)

// StopError marks an error as permanent regardless of Retryable.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop wraps err so that Do returns it without further attempts.
func Stop(err error) error {
	return &StopError{Err: err}
}

type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, fails permanently, the attempt budget runs
// out, or ctx ends while waiting between attempts. fn is always called at
// least once. Do returns how many times fn ran and the last error fn
// returned (unwrapped from StopError); a cancelled wait never replaces the
// operation's own error.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) (int, error) {
	return doWithSleeper(ctx, cfg, fn, realSleeper{})
}

func doWithSleeper(ctx context.Context, cfg Config, fn func(context.Context, int) error, s sleeper) (int, error) {
	limit := max(cfg.Attempts, 1)

	var lastErr error
	for attempt := range limit {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt + 1, nil
		}

		var stop *StopError
		if errors.As(lastErr, &stop) {
			return attempt + 1, stop.Err
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return attempt + 1, lastErr
		}
		if attempt == limit-1 {
			return attempt + 1, lastErr
		}
		if ctx.Err() != nil || s.sleep(ctx, CalcDelay(cfg, attempt)) != nil {
			return attempt + 1, lastErr
		}
	}
	return limit, lastErr
}

// CalcDelay computes the sleep duration after a given attempt (0-indexed).
func CalcDelay(cfg Config, attempt int) time.Duration {
	var delay time.Duration
	switch cfg.Strategy {
	case Exponential:
		delay = cfg.InitDelay * time.Duration(math.Pow(2, float64(attempt)))
	case Linear:
		delay = cfg.InitDelay * time.Duration(attempt+1)
	case Constant:
		delay = cfg.InitDelay
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && delay > 0 {
		if quarter := int64(delay) / 4; quarter > 0 {
			j := time.Duration(rand.Int64N(quarter))
			if rand.IntN(2) == 0 {
				delay += j
			} else {
				delay -= j
			}
		}
	}
	return delay
}
