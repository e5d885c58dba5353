package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks dividend cache effectiveness.
type CacheMetrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
	Errors *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dividend_cache",
			Name:      "hits_total",
			Help:      "Total number of dividend cache hits, by query shape.",
		}, []string{"shape"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dividend_cache",
			Name:      "misses_total",
			Help:      "Total number of dividend cache misses, by query shape.",
		}, []string{"shape"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dividend_cache",
			Name:      "errors_total",
			Help:      "Total number of cache backend errors, by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Errors)
	return m
}
