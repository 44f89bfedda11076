package hooks

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/output/dispatcher"
	"github.com/waftester/reconsuite/pkg/output/events"
)

var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook records scan metrics in its own registry. It does not
// serve them; mount Handler wherever metrics are exposed.
type PrometheusHook struct {
	registry *prometheus.Registry

	scansTotal       *prometheus.CounterVec
	scansInFlight    prometheus.Gauge
	scanDuration     prometheus.Histogram
	categoryResults  *prometheus.CounterVec
	categoryAttempts *prometheus.CounterVec
	categoryDuration *prometheus.HistogramVec
}

// PrometheusOptions configures the Prometheus hook.
type PrometheusOptions struct {
	// Namespace prefixes every metric name (default: defaults.ToolName).
	Namespace string
}

// NewPrometheusHook creates the hook and registers its collectors.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Namespace == "" {
		opts.Namespace = defaults.ToolName
	}
	ns := opts.Namespace

	h := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "scans_total",
			Help:      "Scans settled, by outcome (complete, partial, all_failed).",
		}, []string{"outcome"}),
		scansInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "scans_in_flight",
			Help:      "Scans accepted but not yet settled.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "scan_duration_seconds",
			Help:      "Wall time from scan start to settlement.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		categoryResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "category_results_total",
			Help:      "Settled category operations, by status and failure kind.",
		}, []string{"category", "status", "kind"}),
		categoryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "category_attempts_total",
			Help:      "Remote calls made per category, retries included.",
		}, []string{"category"}),
		categoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "category_duration_seconds",
			Help:      "Wall time of one category across all attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"category"}),
	}

	collectors := []prometheus.Collector{
		h.scansTotal,
		h.scansInFlight,
		h.scanDuration,
		h.categoryResults,
		h.categoryAttempts,
		h.categoryDuration,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// OnEvent updates metrics for one event.
func (h *PrometheusHook) OnEvent(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.ScanStarted:
		h.scansInFlight.Inc()
	case *events.CategorySettled:
		name := e.Category.String()
		status := "ok"
		if !e.OK {
			status = "failed"
		}
		h.categoryResults.WithLabelValues(name, status, e.Kind).Inc()
		h.categoryAttempts.WithLabelValues(name).Add(float64(e.Attempts))
		h.categoryDuration.WithLabelValues(name).Observe(e.Elapsed().Seconds())
	case *events.ScanSettled:
		h.scansInFlight.Dec()
		h.scansTotal.WithLabelValues(outcome(e)).Inc()
		h.scanDuration.Observe(e.Elapsed().Seconds())
	}
	return nil
}

func outcome(e *events.ScanSettled) string {
	switch {
	case e.AllFailed():
		return "all_failed"
	case len(e.Failed) == 0:
		return "complete"
	default:
		return "partial"
	}
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeScanStarted,
		events.EventTypeCategorySettled,
		events.EventTypeScanSettled,
	}
}

// Gatherer exposes the hook's registry.
func (h *PrometheusHook) Gatherer() prometheus.Gatherer { return h.registry }

// Handler serves the hook's registry in the Prometheus exposition format.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
