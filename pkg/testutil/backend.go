package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/jsonutil"
)

// Backend is a fake scan backend serving POST /scan/<path>. Paths with no
// configured reply answer 404.
type Backend struct {
	Server *httptest.Server

	mu      sync.Mutex
	routes  map[string]*route
	calls   map[string]int
	domains []string
	bodies  []string
}

type route struct {
	status   int
	body     []byte
	delay    time.Duration
	gate     chan struct{}
	failures int // leading calls answered with failStatus
	failCode int
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		routes: make(map[string]*route),
		calls:  make(map[string]int),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) route(path string) *route {
	r, ok := b.routes[path]
	if !ok {
		r = &route{status: http.StatusOK}
		b.routes[path] = r
	}
	return r
}

// JSON makes path answer 200 with v encoded as JSON.
func (b *Backend) JSON(path string, v any) *Backend {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		panic("testutil: encode reply: " + err.Error())
	}
	return b.Raw(path, http.StatusOK, string(data))
}

// Raw makes path answer status with body verbatim.
func (b *Backend) Raw(path string, status int, body string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.route(path)
	r.status = status
	r.body = []byte(body)
	return b
}

// Status makes path answer status with an empty JSON object.
func (b *Backend) Status(path string, status int) *Backend {
	return b.Raw(path, status, `{}`)
}

// FailFirst makes the first n calls to path answer status before the
// configured reply is served.
func (b *Backend) FailFirst(path string, n, status int) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.route(path)
	r.failures = n
	r.failCode = status
	return b
}

// Delay makes path sleep d before answering. The sleep ends early when the
// client goes away.
func (b *Backend) Delay(path string, d time.Duration) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.route(path).delay = d
	return b
}

// Gate makes path block until the returned function is called or the client
// goes away. Releasing twice is safe.
func (b *Backend) Gate(path string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.route(path).gate = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many requests reached path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// TotalCalls returns the number of requests across all paths.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Bodies returns every request body received, in arrival order.
func (b *Backend) Bodies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func (b *Backend) serve(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost || !strings.HasPrefix(req.URL.Path, defaults.ScanPathPrefix) {
		http.NotFound(w, req)
		return
	}
	path := strings.TrimPrefix(req.URL.Path, defaults.ScanPathPrefix)
	body, _ := io.ReadAll(req.Body)

	b.mu.Lock()
	b.calls[path]++
	n := b.calls[path]
	b.bodies = append(b.bodies, string(body))
	r, ok := b.routes[path]
	var snapshot route
	if ok {
		snapshot = *r
	}
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}
	if snapshot.gate != nil {
		select {
		case <-snapshot.gate:
		case <-req.Context().Done():
			return
		}
	}
	if snapshot.delay > 0 {
		select {
		case <-time.After(snapshot.delay):
		case <-req.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	if n <= snapshot.failures {
		w.WriteHeader(snapshot.failCode)
		_, _ = w.Write([]byte(`{"detail":"injected failure"}`))
		return
	}
	w.WriteHeader(snapshot.status)
	_, _ = w.Write(snapshot.body)
}
