package hooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/reconsuite/pkg/output/events"
)

// =============================================================================
// PrometheusHook
// =============================================================================

func TestPrometheusHook_RecordsScan(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)

	started, settled, done := scanEvents("scan-1")
	ctx := context.Background()

	require.NoError(t, h.OnEvent(ctx, started))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.scansInFlight))

	for _, e := range settled {
		require.NoError(t, h.OnEvent(ctx, e))
	}
	require.NoError(t, h.OnEvent(ctx, done))

	assert.Equal(t, 0.0, promtest.ToFloat64(h.scansInFlight))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.scansTotal.WithLabelValues("partial")))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.categoryResults.WithLabelValues("ports", "failed", "network")))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.categoryResults.WithLabelValues("subdomains", "ok", "")))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.categoryAttempts.WithLabelValues("dns")))
	assert.Equal(t, 6, promtest.CollectAndCount(h.categoryDuration))
}

func TestPrometheusHook_MetricNames(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{Namespace: "recon"})
	require.NoError(t, err)
	require.NoError(t, replay(context.Background(), h, "scan-1"))

	n, err := promtest.GatherAndCount(h.Gatherer(),
		"recon_scans_total", "recon_scans_in_flight", "recon_scan_duration_seconds",
		"recon_category_results_total", "recon_category_attempts_total",
		"recon_category_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestPrometheusHook_Handler(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	require.NoError(t, replay(context.Background(), h, "scan-1"))

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "reconsuite_category_results_total"))
}

func TestPrometheusHook_EventTypes(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []events.EventType{
		events.EventTypeScanStarted,
		events.EventTypeCategorySettled,
		events.EventTypeScanSettled,
	}, h.EventTypes())
}
