// Package metrics owns the Prometheus instruments exported by the server.
// All methods are safe on a nil *Metrics so callers never need to guard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netguard"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	predictions      *prometheus.CounterVec
	predictionErrors *prometheus.CounterVec
	predictionTime   prometheus.Histogram
	logins           *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New registers every instrument on registry. Passing nil creates a fresh
// registry that also carries the Go runtime and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Stored predictions by label.",
		}, []string{"label"}),
		predictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed prediction requests by kind.",
		}, []string{"kind"}),
		predictionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent encoding and classifying a feature record.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status.",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(m.predictions, m.predictionErrors, m.predictionTime, m.logins, m.httpRequests)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePrediction(label string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(label).Inc()
	m.predictionTime.Observe(elapsed.Seconds())
}

// PredictionFailed counts a failed prediction; kind is "model" or "predict".
func (m *Metrics) PredictionFailed(kind string) {
	if m == nil {
		return
	}
	m.predictionErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
