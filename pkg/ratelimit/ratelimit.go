// Package ratelimit throttles requests to the scan backend.
//
// A scan fires every category at once; on a shared or slow backend that burst
// can be smoothed with a token bucket. The zero Config is unlimited.
package ratelimit

import (
	"context"
	"errors"
	"math"

	"golang.org/x/time/rate"
)

// ErrInvalidRate is returned for a negative rate or burst.
var ErrInvalidRate = errors.New("ratelimit: rate and burst must not be negative")

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond limits request starts (0 = unlimited).
	RequestsPerSecond float64

	// Burst allows this many requests before throttling starts. Defaults to
	// ceil(RequestsPerSecond), at least 1.
	Burst int
}

// Limiter gates backend calls. A nil *Limiter never blocks.
type Limiter struct {
	lim *rate.Limiter
}

// New builds a limiter. It returns nil, nil for an unlimited config.
func New(cfg Config) (*Limiter, error) {
	if cfg.RequestsPerSecond < 0 || cfg.Burst < 0 {
		return nil, ErrInvalidRate
	}
	if cfg.RequestsPerSecond == 0 {
		return nil, nil
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = max(int(math.Ceil(cfg.RequestsPerSecond)), 1)
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}, nil
}

// Wait blocks until a request may start or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.lim.Wait(ctx)
}

// Allow reports whether a request may start now without waiting.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}

// Limit returns the configured rate, or rate.Inf when unlimited.
func (l *Limiter) Limit() rate.Limit {
	if l == nil {
		return rate.Inf
	}
	return l.lim.Limit()
}
