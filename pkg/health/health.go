// Package health probes the scan backend.
//
// The probe only asks whether the backend answers HTTP at all; the scan
// endpoints are POST-only and slow, so a GET of the base URL is used. Any
// reply below 500 counts as healthy.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/httpclient"
	"github.com/waftester/reconsuite/pkg/iohelper"
)

// Common errors
var (
	ErrTimeout   = errors.New("health: backend did not become healthy in time")
	ErrNoBackend = errors.New("health: no backend URL configured")
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// Result is one probe outcome.
type Result struct {
	Endpoint   string           `json:"endpoint"`
	Status     Status           `json:"status"`
	StatusCode int              `json:"status_code,omitempty"`
	Cause      httpclient.Cause `json:"cause,omitempty"`
	Latency    time.Duration    `json:"latency_ns,format:nano"`
	Message    string           `json:"message,omitempty"`
	CheckedAt  time.Time        `json:"checked_at"`
}

// IsHealthy returns true if the result indicates healthy status
func (r Result) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// Config configures a Checker.
type Config struct {
	// BaseURL is the backend address.
	BaseURL string

	// Client defaults to a fresh httpclient with Timeout.
	Client *http.Client

	// Timeout bounds one probe (default 5s).
	Timeout time.Duration

	// CacheTTL makes Cached reuse a result for this long (0 = always probe).
	CacheTTL time.Duration
}

// Checker probes one backend. Safe for concurrent use.
type Checker struct {
	cfg    Config
	client *http.Client

	mu   sync.Mutex
	last Result
}

// NewChecker validates cfg and builds a Checker.
func NewChecker(cfg Config) (*Checker, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBackend
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := cfg.Client
	if client == nil {
		var err error
		hc := httpclient.DefaultConfig()
		hc.Timeout = cfg.Timeout
		if client, err = httpclient.New(hc); err != nil {
			return nil, err
		}
	}
	return &Checker{cfg: cfg, client: client, last: Result{Endpoint: cfg.BaseURL, Status: StatusUnknown}}, nil
}

// Check probes the backend now.
func (c *Checker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result := Result{Endpoint: c.cfg.BaseURL, CheckedAt: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		return c.store(result)
	}
	req.Header.Set("User-Agent", defaults.UserAgent)

	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Cause = httpclient.Classify(err)
		result.Message = err.Error()
		return c.store(result)
	}
	defer iohelper.DrainAndClose(resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 500 {
		body, _ := iohelper.ReadSmall(resp.Body)
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("backend answered %d: %.120s", resp.StatusCode, body)
		return c.store(result)
	}
	result.Status = StatusHealthy
	result.Message = "OK"
	return c.store(result)
}

func (c *Checker) store(r Result) Result {
	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
	return r
}

// Last returns the most recent result, StatusUnknown before the first probe.
func (c *Checker) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Cached returns the last result while it is younger than CacheTTL and
// probes otherwise.
func (c *Checker) Cached(ctx context.Context) Result {
	last := c.Last()
	if last.Status != StatusUnknown && c.cfg.CacheTTL > 0 && time.Since(last.CheckedAt) < c.cfg.CacheTTL {
		return last
	}
	return c.Check(ctx)
}

// WaitFor checks every interval until the backend is healthy. When ctx ends
// first it returns ErrTimeout with the message of the last check that
// completed before the deadline; a check cut short by ctx itself never
// replaces it.
func (c *Checker) WaitFor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Result
	for {
		if ctx.Err() != nil {
			return timeoutError(last)
		}
		r := c.Check(ctx)
		if r.IsHealthy() {
			return nil
		}
		if ctx.Err() == nil || last.Status == "" {
			last = r
		}
		select {
		case <-ctx.Done():
			return timeoutError(last)
		case <-ticker.C:
		}
	}
}

func timeoutError(last Result) error {
	if last.Status == "" {
		return fmt.Errorf("%w: no check completed", ErrTimeout)
	}
	return fmt.Errorf("%w: %s", ErrTimeout, last.Message)
}
