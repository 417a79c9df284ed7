package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and auth flows.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	reconcileRuns   *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cabinet_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_auth_logins_total",
		Help: "Login attempts by principal kind and outcome.",
	}, []string{"kind", "outcome"})
	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_auth_tokens_issued_total",
		Help: "Signed tokens issued by purpose.",
	}, []string{"purpose"})
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_rbac_reconcile_runs_total",
		Help: "RBAC reconciliation runs by result.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, logins, tokens, reconcile)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		loginsTotal:     logins,
		tokensIssued:    tokens,
		reconcileRuns:   reconcile,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(kind, outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTokenIssued counts a signed token.
func (m *Metrics) RecordTokenIssued(purpose string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(purpose).Inc()
}

// RecordReconcile counts a reconciliation run.
func (m *Metrics) RecordReconcile(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.reconcileRuns.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
