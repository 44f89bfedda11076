// Package orchestrator runs a reconnaissance scan: it launches every category
// of the registry concurrently against one domain, waits until each has
// settled, and assembles the aggregate.
//
// A category's failure is contained in its own result. It never cancels or
// delays another category and never fails the scan as a whole; the only
// errors RunScan returns are precondition rejections.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/output/dispatcher"
	"github.com/waftester/reconsuite/pkg/output/events"
	"github.com/waftester/reconsuite/pkg/retry"
	"github.com/waftester/reconsuite/pkg/scanclient"
)

// Config configures an Orchestrator.
type Config struct {
	// Client performs the remote operation of each category. Required.
	Client scanclient.Invoker

	// Retry bounds repeated attempts inside one category. The zero value
	// makes a single attempt. A nil Retryable uses scanclient.Retryable.
	Retry retry.Config

	// CategoryTimeout bounds one category across all its attempts.
	// Zero means no limit beyond the HTTP client's own timeout.
	CategoryTimeout time.Duration

	// Dispatcher receives lifecycle events. Nil disables them.
	Dispatcher *dispatcher.Dispatcher

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator runs at most one scan at a time.
type Orchestrator struct {
	client     scanclient.Invoker
	retry      retry.Config
	timeout    time.Duration
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger

	running atomic.Bool
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}
	if cfg.CategoryTimeout < 0 {
		return nil, fmt.Errorf("orchestrator: negative category timeout %v", cfg.CategoryTimeout)
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = scanclient.Retryable
	}
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Orchestrator{
		client:     cfg.Client,
		retry:      cfg.Retry,
		timeout:    cfg.CategoryTimeout,
		dispatcher: cfg.Dispatcher,
		logger:     l,
	}, nil
}

// InProgress reports whether a scan is in flight.
func (o *Orchestrator) InProgress() bool { return o.running.Load() }

// RunScan scans domain under a fresh scan ID.
func (o *Orchestrator) RunScan(ctx context.Context, domain string) (*aggregate.Aggregate, error) {
	return o.RunScanWithID(ctx, uuid.NewString(), domain)
}

// RunScanWithID scans domain and returns the aggregate once every category
// settled. It returns an error only for ErrEmptyDomain or ErrScanInProgress,
// in which case no remote call was made.
//
// Cancelling ctx does not abandon the scan: categories still in flight fail
// with a network error and the aggregate is complete.
func (o *Orchestrator) RunScanWithID(ctx context.Context, scanID, domain string) (*aggregate.Aggregate, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer o.running.Store(false)

	req := scanclient.Request{Domain: domain}
	started := time.Now()
	evCtx := context.WithoutCancel(ctx)
	o.dispatcher.Dispatch(evCtx, events.NewScanStarted(scanID, domain, category.All()))

	// One slot per category; each goroutine writes only its own.
	var slots [category.Count]aggregate.Result
	var wg sync.WaitGroup
	for _, c := range category.All() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := o.runCategory(ctx, c, req)
			slots[c] = r
			o.dispatcher.Dispatch(evCtx, events.NewCategorySettled(scanID, domain, r))
		}()
	}
	wg.Wait()

	b := aggregate.NewBuilder(scanID, domain, started)
	for _, r := range slots {
		b.Set(r)
	}
	agg, err := b.Build(time.Now())
	if err != nil {
		// Every slot is written before wg.Wait returns.
		panic(err)
	}

	o.dispatcher.Dispatch(evCtx, events.NewScanSettled(agg))
	return agg, nil
}

// runCategory runs one category to settlement, retrying within its budget.
func (o *Orchestrator) runCategory(ctx context.Context, c category.Category, req scanclient.Request) aggregate.Result {
	start := time.Now()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var last aggregate.Result
	attempts, _ := retry.Do(ctx, o.retry, func(ctx context.Context, attempt int) error {
		last = o.invoke(ctx, c, req)
		if !last.OK() {
			o.logger.Debug("category attempt failed",
				slog.String("category", c.String()),
				slog.Int("attempt", attempt+1),
				slog.String("error", last.Reason()))
		}
		return last.Err()
	})
	return last.WithTiming(attempts, time.Since(start))
}

// invoke calls the client once and turns a panic or malformed result into a
// failure of c.
func (o *Orchestrator) invoke(ctx context.Context, c category.Category, req scanclient.Request) (r aggregate.Result) {
	defer func() {
		if v := recover(); v != nil {
			pe := &PanicError{Category: c, Value: v, Stack: debug.Stack()}
			o.logger.Error("category task panicked",
				slog.String("category", c.String()),
				slog.Any("panic", v),
				slog.String("stack", string(pe.Stack)))
			r = aggregate.Failure(c, pe)
		}
	}()

	r = o.client.Invoke(ctx, c, req)
	if r.Category() != c || (!r.OK() && r.Err() == nil) {
		return aggregate.Failure(c, fmt.Errorf("%w: %s got result for %s", ErrInvalidResult, c, r.Category()))
	}
	return r
}
