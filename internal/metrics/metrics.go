// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors the service records into.
type Metrics struct {
	SuggestRequests *prometheus.CounterVec
	SuggestDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	IndexRebuilds   prometheus.Counter
	IndexSize       prometheus.Gauge
}

// New registers and returns the service collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SuggestRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "suggest_requests_total",
			Help:      "Suggestion requests by outcome (ok, invalid, no_matches, error).",
		}, []string{"outcome"}),
		SuggestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchd",
			Name:      "suggest_duration_seconds",
			Help:      "End-to-end suggestion latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "suggest_cache_hits_total",
			Help:      "Suggestion responses served from the TTL cache.",
		}),
		IndexRebuilds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "index_rebuilds_total",
			Help:      "Full index rebuilds triggered by fingerprint changes.",
		}),
		IndexSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "index_hospitals",
			Help:      "Hospitals in the published index snapshot.",
		}),
	}
}
