package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

// Metrics holds the service's collectors on a private registry.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	probeResults    *prometheus.CounterVec
	rankedEndpoints prometheus.Gauge
	bestLatency     prometheus.Gauge
	lastRefresh     prometheus.Gauge
	redirectsTotal  *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bestmirror_refresh_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"result"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bestmirror_refresh_duration_seconds",
				Help:    "Duration of complete refresh cycles",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		probeResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bestmirror_probe_results_total",
				Help: "Endpoint outcomes per refresh cycle",
			},
			[]string{"status"},
		),
		rankedEndpoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bestmirror_ranked_endpoints",
				Help: "Endpoints in the published ranking",
			},
		),
		bestLatency: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bestmirror_best_latency_seconds",
				Help: "Mean latency of the current best endpoint",
			},
		),
		lastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bestmirror_last_refresh_timestamp_seconds",
				Help: "Unix time of the last published ranking",
			},
		),
		redirectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bestmirror_redirects_total",
				Help: "Front door decisions by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.refreshDuration,
		m.probeResults,
		m.rankedEndpoints,
		m.bestLatency,
		m.lastRefresh,
		m.redirectsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveProbe counts one endpoint outcome.
func (m *Metrics) ObserveProbe(status domain.ProbeStatus) {
	if m == nil {
		return
	}
	m.probeResults.WithLabelValues(status.String()).Inc()
}

// ObserveRefresh records a finished cycle. result is "ok", "source_error" or "cancelled".
func (m *Metrics) ObserveRefresh(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(took.Seconds())
}

// ObservePublish updates the ranking gauges.
func (m *Metrics) ObservePublish(ranking domain.Ranking, at time.Time) {
	if m == nil {
		return
	}
	m.rankedEndpoints.Set(float64(len(ranking)))
	if best, ok := ranking.Best(); ok {
		m.bestLatency.Set(best.Latency)
	} else {
		m.bestLatency.Set(0)
	}
	m.lastRefresh.Set(float64(at.Unix()))
}

// ObserveRedirect counts a front door decision ("redirect", "plain", "warming_up").
func (m *Metrics) ObserveRedirect(outcome string) {
	if m == nil {
		return
	}
	m.redirectsTotal.WithLabelValues(outcome).Inc()
}
