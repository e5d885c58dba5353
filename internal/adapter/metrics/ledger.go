package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics tracks upstream chain queries.
type LedgerMetrics struct {
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	Deduplicated  prometheus.Counter
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "queries_total",
			Help:      "Total number of upstream ledger queries, by shape and result.",
		}, []string{"shape", "result"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "query_duration_seconds",
			Help:      "Duration of upstream ledger queries in seconds, including connect.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"shape"}),
		Deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "deduplicated_total",
			Help:      "Total number of callers whose upstream query result was shared with concurrent callers.",
		}),
	}

	reg.MustRegister(m.QueriesTotal, m.QueryDuration, m.Deduplicated)
	return m
}
