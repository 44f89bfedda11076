// Package session owns the state of one scanning session: the domain being
// scanned, whether a scan is in flight, and the last settled aggregate.
//
// Submit is the single entry point for starting a scan. It flips the session
// to in-progress before returning and runs the scan in the background; the
// aggregate becomes visible only once every category settled.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/orchestrator"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session: closed")

// Runner runs one scan to settlement. *orchestrator.Orchestrator implements it.
type Runner interface {
	RunScanWithID(ctx context.Context, scanID, domain string) (*aggregate.Aggregate, error)
}

var _ Runner = (*orchestrator.Orchestrator)(nil)

// Options configures a Session.
type Options struct {
	// ScanTimeout bounds a whole scan. Categories still pending when it
	// expires fail; the aggregate is still published. Zero means none.
	ScanTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewID generates scan IDs (default uuid.NewString).
	NewID func() string
}

// State is a consistent snapshot of the session.
type State struct {
	Domain     string               `json:"domain"`
	ScanID     string               `json:"scan_id"`
	InProgress bool                 `json:"in_progress"`
	Aggregate  *aggregate.Aggregate `json:"aggregate"`
	// LastError is set when the most recent accepted scan could not run.
	LastError string `json:"last_error,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	runner Runner
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	domain     string
	scanID     string
	inProgress bool
	agg        *aggregate.Aggregate
	lastErr    error
	settled    chan struct{} // closed when the in-flight scan settles
	closed     bool
}

// New creates an idle session.
func New(r Runner, opts Options) *Session {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{runner: r, opts: opts, logger: l, ctx: ctx, cancel: cancel}
}

// Submit starts a scan of domain and returns its ID. It is rejected, with no
// side effect, when domain is blank (orchestrator.ErrEmptyDomain), a scan is
// in flight (orchestrator.ErrScanInProgress), or the session is closed.
func (s *Session) Submit(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", orchestrator.ErrEmptyDomain
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.inProgress {
		return "", orchestrator.ErrScanInProgress
	}

	id := s.opts.NewID()
	s.inProgress = true
	s.domain = domain
	s.scanID = id
	s.lastErr = nil
	s.settled = make(chan struct{})

	s.wg.Add(1)
	go s.run(id, domain, s.settled)
	return id, nil
}

func (s *Session) run(id, domain string, settled chan struct{}) {
	defer s.wg.Done()

	ctx := s.ctx
	if s.opts.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ScanTimeout)
		defer cancel()
	}

	agg, err := s.runner.RunScanWithID(ctx, id, domain)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Error("scan could not run",
			slog.String("scan_id", id),
			slog.String("domain", domain),
			slog.String("error", err.Error()))
		s.lastErr = err
	} else {
		s.agg = agg
	}
	s.inProgress = false
	close(settled)
}

// CurrentAggregate returns the last settled aggregate, or nil before the
// first scan settles. A scan in flight does not change it.
func (s *Session) CurrentAggregate() *aggregate.Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg
}

// IsInProgress reports whether a scan is in flight.
func (s *Session) IsInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// Domain returns the domain of the most recently accepted scan.
func (s *Session) Domain() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domain
}

// ScanID returns the ID of the most recently accepted scan.
func (s *Session) ScanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanID
}

// Snapshot returns every field under one lock.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Domain:     s.domain,
		ScanID:     s.scanID,
		InProgress: s.inProgress,
		Aggregate:  s.agg,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Wait blocks until no scan is in flight and returns the current aggregate,
// along with the error of the latest scan if it could not run. It returns
// ctx.Err() if ctx ends first.
func (s *Session) Wait(ctx context.Context) (*aggregate.Aggregate, error) {
	for {
		s.mu.Lock()
		if !s.inProgress {
			agg, err := s.agg, s.lastErr
			s.mu.Unlock()
			return agg, err
		}
		settled := s.settled
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close rejects further submissions, cancels the in-flight scan and waits
// for it to settle. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
