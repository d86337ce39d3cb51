// Package metrics holds the prometheus collectors of the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"patrolops/api/internal/model"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	operatives   *prometheus.CounterVec
	importRows   *prometheus.CounterVec
	publishFails prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolops_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patrolops_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"method", "route"}),
		operatives: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolops_operatives_total",
			Help: "Operative lifecycle transitions by kind",
		}, []string{"kind"}),
		importRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolops_user_import_rows_total",
			Help: "User import rows by outcome",
		}, []string{"outcome"}),
		publishFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "patrolops_event_publish_failures_total",
			Help: "Operative events that could not be published",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// OperativeEvent counts a persisted lifecycle transition.
func (m *Metrics) OperativeEvent(kind model.OperativeEventKind) {
	if m == nil {
		return
	}
	m.operatives.WithLabelValues(string(kind)).Inc()
}

// ImportResult adds the row counts of one import.
func (m *Metrics) ImportResult(r model.UserImportResult) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("inserted").Add(float64(r.Inserted))
	m.importRows.WithLabelValues("updated").Add(float64(r.Updated))
	m.importRows.WithLabelValues("unchanged").Add(float64(r.Unchanged))
	m.importRows.WithLabelValues("skipped").Add(float64(r.Skipped))
}

// PublishFailed counts an event that was persisted but not delivered.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFails.Inc()
}
