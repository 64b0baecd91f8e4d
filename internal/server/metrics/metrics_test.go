package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePrediction("normal", 2*time.Millisecond)
	m.ObservePrediction("neptune", time.Millisecond)
	m.ObservePrediction("neptune", time.Millisecond)
	m.PredictionFailed("model")
	m.Login(LoginSuccess)
	m.Login(LoginFailure)
	m.Login(LoginFailure)
	m.HTTPRequest(http.MethodPost, "/login", 401)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("neptune")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictionErrors.WithLabelValues("model")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/login", "401")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.Login(LoginSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `netguard_logins_total{result="success"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePrediction("normal", time.Millisecond)
		m.PredictionFailed("predict")
		m.Login(LoginSuccess)
		m.HTTPRequest("GET", "/", 200)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
