package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/missions", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/missions", http.StatusOK, 30*time.Millisecond)
	m.JobRun("mission_expiry", nil)
	m.JobRun("mission_expiry", errors.New("db down"))
	m.AIAnswer("recommendation", "fallback")
	m.RateLimited("ai")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/missions", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("mission_expiry", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiAnswers.WithLabelValues("recommendation", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimits.WithLabelValues("ai")))

	m.IncInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	m.DecInFlight()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.RateLimited("api")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `qic_life_http_rate_limited_total{scope="api"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncInFlight()
		m.DecInFlight()
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
		m.JobRun("x", nil)
		m.AIAnswer("x", "ai")
		m.RateLimited("x")
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
