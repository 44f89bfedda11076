// Package testutil provides shared test helpers: concurrency assertions,
// goroutine leak detection and a fake scan backend.
package testutil

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// GoroutineTracker captures goroutine count before/after a test to detect leaks.
type GoroutineTracker struct {
	before int
}

// TrackGoroutines snapshots the current goroutine count. Call CheckLeaks after.
func TrackGoroutines() *GoroutineTracker {
	runtime.Gosched()
	return &GoroutineTracker{before: runtime.NumGoroutine()}
}

// CheckLeaks waits briefly for goroutines to drain, then fails the test if
// more goroutines are running than when tracking started.
// tolerance allows N extra goroutines (for runtime jitter).
func (g *GoroutineTracker) CheckLeaks(t testing.TB, tolerance int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.Gosched()
		if runtime.NumGoroutine() <= g.before+tolerance {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > g.before+tolerance {
		t.Errorf("goroutine leak: before=%d after=%d tolerance=%d", g.before, after, tolerance)
	}
}

// AssertTimeout runs fn and fails if it doesn't complete within d.
func AssertTimeout(t testing.TB, name string, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s: timed out after %v (possible deadlock)", name, d)
	}
}

// Eventually polls cond every 5ms until it holds or d elapses.
func Eventually(t testing.TB, name string, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("%s: condition not met within %v", name, d)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// RunConcurrently runs fn count times across goroutines released at the same
// instant and waits for all to finish.
func RunConcurrently(count int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func(idx int) {
			defer wg.Done()
			<-start
			fn(idx)
		}(i)
	}
	close(start)
	wg.Wait()
}
