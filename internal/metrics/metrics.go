// Package metrics collects Prometheus metrics for the HTTP surface, inventory
// mutations, logins and assistant calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds a private registry and the application collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	logins          *prometheus.CounterVec
	assistant       *prometheus.HistogramVec
	criticalItems   prometheus.Gauge
}

// New initializes the registry and every collector.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sinalizacao_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sinalizacao_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sinalizacao_mutations_total",
			Help: "Inventory and user mutations by operation and result.",
		}, []string{"op", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sinalizacao_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		assistant: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sinalizacao_assistant_duration_seconds",
			Help:    "Assistant request duration by result.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"result"}),
		criticalItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sinalizacao_critical_items",
			Help: "Items whose balance is at or below their minimum stock.",
		}),
	}
	registry.MustRegister(
		m.requestsTotal, m.requestDuration, m.mutations, m.logins, m.assistant, m.criticalItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records a request count and duration for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveMutation counts one engine mutation. err == nil counts as "ok".
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result(err)).Inc()
}

// ObserveLogin counts one login attempt.
func (m *Metrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(err)).Inc()
}

// ObserveAssistant records one assistant call; ok is false when the fallback
// answer was used.
func (m *Metrics) ObserveAssistant(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	r := "ok"
	if !ok {
		r = "fallback"
	}
	m.assistant.WithLabelValues(r).Observe(d.Seconds())
}

// SetCriticalItems sets the critical item gauge.
func (m *Metrics) SetCriticalItems(n int) {
	if m == nil {
		return
	}
	m.criticalItems.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
