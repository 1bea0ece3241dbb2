// Package observability exposes Prometheus metrics for the frontend server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multichat"

// ProxyOutcome labels how a chat proxy request ended.
type ProxyOutcome string

const (
	// OutcomeRelayed means the backend's reply was passed through.
	OutcomeRelayed ProxyOutcome = "relayed"
	// OutcomeInvalid means the request was rejected before reaching the backend.
	OutcomeInvalid ProxyOutcome = "invalid"
	// OutcomeBackendError means the backend was unreachable or replied with non-JSON.
	OutcomeBackendError ProxyOutcome = "backend_error"
)

// CatalogResult labels how a model catalog lookup was served.
type CatalogResult string

const (
	CatalogCacheHit CatalogResult = "cache_hit"
	CatalogFetched  CatalogResult = "fetched"
	CatalogStale    CatalogResult = "stale"
	CatalogEmpty    CatalogResult = "empty"
)

// Metrics holds the server's collectors. A nil *Metrics records nothing, so
// callers do not need to check whether metrics are enabled.
type Metrics struct {
	proxyRequests *prometheus.CounterVec
	proxyDuration prometheus.Histogram
	catalog       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Chat proxy requests by outcome.",
		}, []string{"outcome"}),
		proxyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_duration_seconds",
			Help:      "Time spent serving chat proxy requests, backend fan-out included.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		catalog: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "Model catalog lookups by how they were served.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.proxyRequests, m.proxyDuration, m.catalog)
	return m
}

// ObserveProxy records one finished chat proxy request.
func (m *Metrics) ObserveProxy(outcome ProxyOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(string(outcome)).Inc()
	m.proxyDuration.Observe(elapsed.Seconds())
}

// ObserveCatalog records one catalog lookup.
func (m *Metrics) ObserveCatalog(result CatalogResult) {
	if m == nil {
		return
	}
	m.catalog.WithLabelValues(string(result)).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
