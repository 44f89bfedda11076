package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/health"
	"github.com/waftester/reconsuite/pkg/jsonutil"
	"github.com/waftester/reconsuite/pkg/orchestrator"
	"github.com/waftester/reconsuite/pkg/output/hooks"
	"github.com/waftester/reconsuite/pkg/payload"
	"github.com/waftester/reconsuite/pkg/scanclient"
	"github.com/waftester/reconsuite/pkg/session"
	"github.com/waftester/reconsuite/pkg/testutil"
)

// =============================================================================
// Helpers
// =============================================================================

// stubSession answers Submit with err and Snapshot with state.
type stubSession struct {
	mu      sync.Mutex
	err     error
	state   session.State
	domains []string
}

func (s *stubSession) Submit(domain string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = append(s.domains, domain)
	if s.err != nil {
		return "", s.err
	}
	return "scan-1", nil
}

func (s *stubSession) Snapshot() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubSession) submitted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.domains...)
}

func (s *stubSession) setInProgress(v bool) {
	s.mu.Lock()
	s.state.InProgress = v
	s.mu.Unlock()
}

func settled(t *testing.T) *aggregate.Aggregate {
	t.Helper()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := aggregate.NewBuilder("scan-1", "example.com", start)
	for _, c := range category.All() {
		switch c {
		case category.Ports:
			b.Set(aggregate.Failure(c, errors.New("connection refused")))
		case category.Technologies:
			b.Set(aggregate.Success(c, payload.Technologies{"nginx"}))
		default:
			b.Set(aggregate.Success(c, category.Describe(c).Default()))
		}
	}
	agg, err := b.Build(start.Add(2 * time.Second))
	require.NoError(t, err)
	return agg
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, jsonutil.Unmarshal(data, &m), string(data))
	return m
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_RequiresSession(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoSession)
}

// =============================================================================
// POST /api/v1/scans
// =============================================================================

func TestSubmit_Accepted(t *testing.T) {
	stub := &stubSession{}
	srv := newTestServer(t, Options{Session: stub})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/scans", `{"domain":" example.com "}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/api/v1/scans/current", resp.Header.Get("Location"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"scan_id":"scan-1","domain":"example.com"}`, string(body))
	assert.Equal(t, []string{" example.com "}, stub.submitted())
}

func TestSubmit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty domain", orchestrator.ErrEmptyDomain, http.StatusBadRequest},
		{"in progress", orchestrator.ErrScanInProgress, http.StatusConflict},
		{"closed", session.ErrClosed, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Options{Session: &stubSession{err: tt.err}})
			resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/scans", `{"domain":"example.com"}`)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, tt.err.Error(), decode(t, body)["error"])
		})
	}
}

func TestSubmit_BadBody(t *testing.T) {
	stub := &stubSession{}
	srv := newTestServer(t, Options{Session: stub})

	for _, body := range []string{"", "not json", `{"domain":42}`, `{"domain":"` + strings.Repeat("a", 5000) + `"}`} {
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/scans", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %.20q", body)
	}
	assert.Empty(t, stub.submitted(), "bad bodies must not reach the session")
}

func TestSubmit_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})
	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/v1/scans", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// =============================================================================
// GET /api/v1/scans/current
// =============================================================================

func TestCurrent_EmptySession(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, false, m["in_progress"])
	assert.Nil(t, m["aggregate"])
}

func TestCurrent_SettledAggregateHasEveryCategory(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{state: session.State{
		Domain: "example.com", ScanID: "scan-1", Aggregate: settled(t),
	}}})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	agg, ok := decode(t, body)["aggregate"].(map[string]any)
	require.True(t, ok)
	results := agg["results"].(map[string]any)
	assert.Len(t, results, category.Count)
	for _, c := range category.All() {
		assert.Contains(t, results, c.String())
	}
	ports := results["ports"].(map[string]any)
	assert.Equal(t, "failed", ports["status"])
	assert.Equal(t, []any{}, ports["data"], "failed category reads as its default")
}

func TestCurrent_ETag(t *testing.T) {
	stub := &stubSession{state: session.State{Domain: "example.com", Aggregate: settled(t)}}
	srv := newTestServer(t, Options{Session: stub})
	url := srv.URL + "/api/v1/scans/current"

	resp, _ := do(t, http.MethodGet, url, "")
	tag := resp.Header.Get("ETag")
	require.NotEmpty(t, tag)

	resp, _ = do(t, http.MethodGet, url, "")
	assert.Equal(t, tag, resp.Header.Get("ETag"), "unchanged snapshot keeps its tag")

	resp, body := do(t, http.MethodGet, url, "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = do(t, http.MethodGet, url, "", "If-None-Match", `"other", W/`+tag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	stub.setInProgress(true)
	resp, _ = do(t, http.MethodGet, url, "", "If-None-Match", tag)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, tag, resp.Header.Get("ETag"))
}

// =============================================================================
// GET /api/v1/scans/current/{category}
// =============================================================================

func TestCategory_Result(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{state: session.State{Aggregate: settled(t)}}})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current/technologies", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, "technologies", m["category"])
	assert.Equal(t, "scan-1", m["scan_id"])
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, []any{"nginx"}, m["data"])

	// the backend path is accepted too
	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/scans/current/sensitive-files", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sensitiveFiles", decode(t, body)["category"])
}

func TestCategory_Failed(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{state: session.State{Aggregate: settled(t)}}})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current/ports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, "failed", m["status"])
	assert.Equal(t, "connection refused", m["error"])
	assert.Equal(t, []any{}, m["data"])
}

func TestCategory_NotFound(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{state: session.State{Aggregate: settled(t)}}})
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current/whois", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	empty := newTestServer(t, Options{Session: &stubSession{}})
	resp, body := do(t, http.MethodGet, empty.URL+"/api/v1/scans/current/dns", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode(t, body)["error"], "no scan")
}

// =============================================================================
// Registry, health, metrics
// =============================================================================

func TestCategories(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})
	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []CategoryInfo
	require.NoError(t, jsonutil.Unmarshal(body, &got))
	require.Len(t, got, category.Count)
	assert.Equal(t, "subdomains", got[0].Name)
	assert.Equal(t, "sensitive-files", got[5].Path)
	assert.Equal(t, "dns_records", got[1].ResultKey)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, body)["status"])
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})
	resp, _ := do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no checker means ready")

	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	up, err := health.NewChecker(health.Config{BaseURL: backend.URL})
	require.NoError(t, err)
	srv = newTestServer(t, Options{Session: &stubSession{}, Health: up})
	resp, body := do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decode(t, body)
	assert.Equal(t, "healthy", ready["status"])
	assert.IsType(t, float64(0), ready["latency_ns"], "latency encodes as integer nanoseconds")

	gone := httptest.NewServer(http.NotFoundHandler())
	goneURL := gone.URL
	gone.Close()
	down, err := health.NewChecker(health.Config{BaseURL: goneURL, Timeout: time.Second})
	require.NoError(t, err)
	srv = newTestServer(t, Options{Session: &stubSession{}, Health: down})
	resp, body = do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", decode(t, body)["status"])
}

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	s, err := New(Options{Session: &stubSession{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, jsonutil.Valid(bytes.TrimSpace(rec.Body.Bytes())), rec.Body.String())
	assert.Contains(t, decode(t, rec.Body.Bytes())["error"], "encoding failed")
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Options{Session: &stubSession{}})
	resp, _ := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "not mounted without a handler")

	prom, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{})
	require.NoError(t, err)
	srv = newTestServer(t, Options{Session: &stubSession{}, Metrics: prom.Handler()})
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scans_in_flight")
}

func TestRecoverer(t *testing.T) {
	srv := newTestServer(t, Options{Session: panicSession{}})
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/scans/current", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type panicSession struct{}

func (panicSession) Submit(string) (string, error) { panic("submit") }
func (panicSession) Snapshot() session.State      { panic("snapshot") }

// =============================================================================
// End to end
// =============================================================================

func TestEndToEnd_SubmitConflictSettle(t *testing.T) {
	b := testutil.NewBackend(t).ServeAll()
	release := b.Gate("ports")

	client, err := scanclient.New(scanclient.Config{BaseURL: b.URL()})
	require.NoError(t, err)
	o, err := orchestrator.New(orchestrator.Config{Client: client})
	require.NoError(t, err)
	sess := session.New(o, session.Options{})
	t.Cleanup(sess.Close)
	srv := newTestServer(t, Options{Session: sess})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/scans", `{"domain":"example.com"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	scanID := decode(t, body)["scan_id"]

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/scans", `{"domain":"other.com"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/scans/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, true, m["in_progress"])
	assert.Nil(t, m["aggregate"], "no partial results while in flight")

	release()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = sess.Wait(ctx)
	require.NoError(t, err)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/scans/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m = decode(t, body)
	assert.Equal(t, false, m["in_progress"])
	assert.Equal(t, scanID, m["scan_id"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/scans/current/ports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, body)["data"], 2)
}
