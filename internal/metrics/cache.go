package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks group cache effectiveness.
//
// Metrics:
//   - <ns>_<sub>_cache_requests_total{cache, result}: lookups by cache ("group",
//     "conditions") and result ("hit", "miss")
type CacheMetrics struct {
	requestsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry
func NewCacheMetrics(cfg Config, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_requests_total",
				Help:      "Total number of cache lookups by result",
			},
			[]string{"cache", "result"},
		),
	}
	registry.MustRegister(cm.requestsTotal)
	return cm
}

// RecordLookup records a cache hit or miss
func (cm *CacheMetrics) RecordLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cm.requestsTotal.WithLabelValues(cache, result).Inc()
}
