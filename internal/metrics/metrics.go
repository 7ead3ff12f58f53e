// Package metrics exposes Prometheus instrumentation for URL analyses.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkurl"

// Metrics holds the analysis collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	remoteFallbacks  *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	allowlistHits    prometheus.Counter
	pageScans        prometheus.Counter
	scanCacheHits    prometheus.Counter
	persistErrors    *prometheus.CounterVec
}

// New registers every collector plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "URL analyses by resulting status and the path that produced them",
		}, []string{"status", "source"}),

		remoteFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fallbacks_total",
			Help:      "Remote classifier failures that fell back to local scoring, by failure kind",
		}, []string{"reason"}),

		analysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing a single URL",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"source"}),

		allowlistHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowlist_hits_total",
			Help:      "Analyses short-circuited by the trust allowlist",
		}),

		pageScans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_scans_total",
			Help:      "Pages whose links were scanned",
		}),

		scanCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cache_hits_total",
			Help:      "Link verdicts served from the page scan cache",
		}),

		persistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed writes of history or statistics",
		}, []string{"key"}),
	}
}

// ObserveAnalysis records one completed analysis. A nil receiver is a no-op.
func (m *Metrics) ObserveAnalysis(status, source, fallbackReason string, whitelisted bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status, source).Inc()
	m.analysisDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if whitelisted {
		m.allowlistHits.Inc()
	}
	if fallbackReason != "" {
		m.remoteFallbacks.WithLabelValues(fallbackReason).Inc()
	}
}

func (m *Metrics) IncPageScans() {
	if m != nil {
		m.pageScans.Inc()
	}
}

func (m *Metrics) IncScanCacheHits() {
	if m != nil {
		m.scanCacheHits.Inc()
	}
}

func (m *Metrics) IncPersistErrors(key string) {
	if m != nil {
		m.persistErrors.WithLabelValues(key).Inc()
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
