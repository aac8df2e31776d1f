// Package metrics holds the Prometheus collectors for sync runs, merges and
// the remote endpoint. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quotebook"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	reg *prometheus.Registry

	syncRuns       *prometheus.CounterVec
	quotesMerged   *prometheus.CounterVec
	remoteRequests *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		syncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by outcome (ok, fetch_failed, push_failed, skipped).",
		}, []string{"outcome"}),
		quotesMerged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_merged_total",
			Help:      "Quotes added to the collection by merge source.",
		}, []string{"source"}),
		remoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Requests to the remote quote source by operation and result.",
		}, []string{"op", "result"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_duration_seconds",
			Help:      "Latency of served requests in seconds.",
		}, []string{"path", "status"}),
	}
}

// Registry exposes the underlying registry (used by tests and custom exporters).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// SyncRun counts one sync run with the given outcome.
func (m *Metrics) SyncRun(outcome string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
}

// QuotesMerged adds n quotes merged from source.
func (m *Metrics) QuotesMerged(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.quotesMerged.WithLabelValues(source).Add(float64(n))
}

// RemoteRequest counts one call to the remote source.
func (m *Metrics) RemoteRequest(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.remoteRequests.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			m.httpDuration.WithLabelValues(routePattern(r), strconv.Itoa(ww.Status())).Observe(v)
		}))

		next.ServeHTTP(ww, r)

		timer.ObserveDuration()
	})
}

// routePattern returns the matched chi route, e.g. "/posts". Requests that
// matched no route share one label value.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
