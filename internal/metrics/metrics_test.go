package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveProbe(domain.StatusMeasured)
	m.ObserveProbe(domain.StatusMeasured)
	m.ObserveProbe(domain.StatusSkipped)
	m.ObserveRefresh("ok", 2*time.Second)
	m.ObservePublish(domain.Ranking{{Endpoint: "a", Latency: 0.05}, {Endpoint: "b", Latency: 0.1}}, time.Unix(1700000000, 0))
	m.ObserveRedirect("redirect")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.probeResults.WithLabelValues("measured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeResults.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rankedEndpoints))
	assert.Equal(t, 0.05, testutil.ToFloat64(m.bestLatency))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRefresh))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redirectsTotal.WithLabelValues("redirect")))
}

func TestMetrics_EmptyRankingResetsBestLatency(t *testing.T) {
	m := New()
	m.ObservePublish(domain.Ranking{{Endpoint: "a", Latency: 0.3}}, time.Now())
	m.ObservePublish(domain.Ranking{}, time.Now())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.bestLatency))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rankedEndpoints))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveProbe(domain.StatusSkipped)
	m.ObserveRefresh("ok", time.Second)
	m.ObservePublish(nil, time.Now())
	m.ObserveRedirect("plain")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRedirect("warming_up")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `bestmirror_redirects_total{outcome="warming_up"} 1`))
}
