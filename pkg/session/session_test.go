package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/orchestrator"
	"github.com/waftester/reconsuite/pkg/scanclient"
	"github.com/waftester/reconsuite/pkg/testutil"
)

// =============================================================================
// Helpers
// =============================================================================

// gatedRunner settles each scan only when release is closed.
type gatedRunner struct {
	release chan struct{}
	calls   atomic.Int32
	err     error

	mu      sync.Mutex
	domains []string
}

func newGatedRunner() *gatedRunner { return &gatedRunner{release: make(chan struct{})} }

func (r *gatedRunner) RunScanWithID(ctx context.Context, id, domain string) (*aggregate.Aggregate, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.domains = append(r.domains, domain)
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
	}
	if r.err != nil {
		return nil, r.err
	}
	start := time.Now()
	b := aggregate.NewBuilder(id, domain, start)
	for _, c := range category.All() {
		if ctx.Err() != nil {
			b.Set(aggregate.Failure(c, ctx.Err()))
			continue
		}
		b.Set(aggregate.Success(c, category.Describe(c).Default()))
	}
	return b.Build(time.Now())
}

func newRealSession(t *testing.T, b *testutil.Backend, opts Options) *Session {
	t.Helper()
	client, err := scanclient.New(scanclient.Config{BaseURL: b.URL()})
	require.NoError(t, err)
	o, err := orchestrator.New(orchestrator.Config{Client: client})
	require.NoError(t, err)
	s := New(o, opts)
	t.Cleanup(s.Close)
	return s
}

// =============================================================================
// Submit
// =============================================================================

func TestSubmit_EmptyDomainRejected(t *testing.T) {
	b := testutil.NewBackend(t).ServeAll()
	s := newRealSession(t, b, Options{})

	for _, d := range []string{"", "  "} {
		id, err := s.Submit(d)
		assert.Empty(t, id)
		assert.ErrorIs(t, err, orchestrator.ErrEmptyDomain)
		assert.ErrorIs(t, err, orchestrator.ErrPrecondition)
	}
	assert.False(t, s.IsInProgress())
	assert.Equal(t, State{}, s.Snapshot())

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, b.TotalCalls())
}

func TestSubmit_FlipsInProgressSynchronously(t *testing.T) {
	r := newGatedRunner()
	s := New(r, Options{NewID: func() string { return "scan-1" }})
	defer s.Close()

	id, err := s.Submit("example.com")
	require.NoError(t, err)
	assert.Equal(t, "scan-1", id)
	assert.True(t, s.IsInProgress(), "in-progress must be set before Submit returns")
	assert.Equal(t, "example.com", s.Domain())
	assert.Equal(t, "scan-1", s.ScanID())
	assert.Nil(t, s.CurrentAggregate(), "no partial aggregate while in flight")

	close(r.release)
	agg, err := s.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "scan-1", agg.ScanID)
	assert.False(t, s.IsInProgress())
	assert.Same(t, agg, s.CurrentAggregate())
}

func TestSubmit_RejectedWhileInProgress(t *testing.T) {
	r := newGatedRunner()
	s := New(r, Options{})
	defer s.Close()

	first, err := s.Submit("example.com")
	require.NoError(t, err)

	var rejected atomic.Int32
	testutil.RunConcurrently(20, func(int) {
		_, err := s.Submit("other.com")
		if errors.Is(err, orchestrator.ErrScanInProgress) {
			rejected.Add(1)
		}
	})
	assert.Equal(t, int32(20), rejected.Load())
	assert.Equal(t, "example.com", s.Domain(), "rejected submit must not change state")
	assert.Equal(t, first, s.ScanID())

	close(r.release)
	_, err = s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSubmit_ConcurrentFromIdleOnlyOneAccepted(t *testing.T) {
	r := newGatedRunner()
	s := New(r, Options{})
	defer s.Close()

	var accepted atomic.Int32
	testutil.RunConcurrently(20, func(int) {
		if _, err := s.Submit("example.com"); err == nil {
			accepted.Add(1)
		}
	})
	assert.Equal(t, int32(1), accepted.Load())
	close(r.release)
	_, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSubmit_PreviousAggregateKeptUntilSettlement(t *testing.T) {
	r := newGatedRunner()
	close(r.release)
	s := New(r, Options{})
	defer s.Close()

	_, err := s.Submit("one.example")
	require.NoError(t, err)
	first, err := s.Wait(context.Background())
	require.NoError(t, err)

	r.release = make(chan struct{})
	_, err = s.Submit("two.example")
	require.NoError(t, err)
	assert.Same(t, first, s.CurrentAggregate())
	assert.Equal(t, "two.example", s.Domain())

	close(r.release)
	second, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "two.example", second.Domain)
	assert.Same(t, second, s.CurrentAggregate())
}

func TestSubmit_RunnerErrorRecorded(t *testing.T) {
	r := newGatedRunner()
	r.err = orchestrator.ErrScanInProgress
	close(r.release)
	s := New(r, Options{})
	defer s.Close()

	_, err := s.Submit("example.com")
	require.NoError(t, err)
	agg, err := s.Wait(context.Background())
	assert.Nil(t, agg)
	assert.ErrorIs(t, err, orchestrator.ErrScanInProgress)
	assert.False(t, s.IsInProgress())
	assert.NotEmpty(t, s.Snapshot().LastError)

	// the session stays usable
	r.err = nil
	_, err = s.Submit("example.com")
	require.NoError(t, err)
	agg, err = s.Wait(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, agg)
	assert.Empty(t, s.Snapshot().LastError)
}

// =============================================================================
// End to end against a fake backend
// =============================================================================

func TestSession_EndToEnd(t *testing.T) {
	b := testutil.NewBackend(t).ServeAll().Status("ports", http.StatusInternalServerError)
	s := newRealSession(t, b, Options{})

	_, err := s.Submit("example.com")
	require.NoError(t, err)

	var agg *aggregate.Aggregate
	testutil.AssertTimeout(t, "scan", 5*time.Second, func() {
		agg, err = s.Wait(context.Background())
	})
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Len(t, agg.Results(), category.Count)
	assert.Equal(t, category.Count-1, agg.Succeeded())
	assert.ErrorIs(t, agg.Result(category.Ports).Err(), scanclient.ErrNetwork)

	st := s.Snapshot()
	assert.False(t, st.InProgress)
	assert.Same(t, agg, st.Aggregate)
}

func TestSession_ScanTimeout(t *testing.T) {
	b := testutil.NewBackend(t).ServeAll().Delay("urls", time.Minute)
	s := newRealSession(t, b, Options{ScanTimeout: 50 * time.Millisecond})

	_, err := s.Submit("example.com")
	require.NoError(t, err)

	var agg *aggregate.Aggregate
	testutil.AssertTimeout(t, "scan", 5*time.Second, func() {
		agg, err = s.Wait(context.Background())
	})
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.ErrorIs(t, agg.Result(category.URLs).Err(), scanclient.ErrNetwork)
	assert.True(t, agg.Result(category.Subdomains).OK())
}

// =============================================================================
// Wait / Close
// =============================================================================

func TestWait_IdleReturnsImmediately(t *testing.T) {
	s := New(newGatedRunner(), Options{})
	defer s.Close()
	agg, err := s.Wait(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, agg)
}

func TestWait_HonoursContext(t *testing.T) {
	r := newGatedRunner()
	s := New(r, Options{})
	defer func() {
		close(r.release)
		s.Close()
	}()

	_, err := s.Submit("example.com")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.IsInProgress())
}

func TestClose_CancelsInFlightAndRejectsSubmit(t *testing.T) {
	tracker := testutil.TrackGoroutines()
	r := newGatedRunner()
	s := New(r, Options{})

	_, err := s.Submit("example.com")
	require.NoError(t, err)

	testutil.AssertTimeout(t, "close", 2*time.Second, s.Close)
	assert.False(t, s.IsInProgress())
	require.NotNil(t, s.CurrentAggregate())
	assert.True(t, s.CurrentAggregate().AllFailed())

	_, err = s.Submit("example.com")
	assert.ErrorIs(t, err, ErrClosed)
	s.Close()
	tracker.CheckLeaks(t, 2)
}
