package metrics

import "github.com/prometheus/client_golang/prometheus"

type SentimentMetrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Score           prometheus.Gauge
}

func NewSentimentMetrics(reg prometheus.Registerer) *SentimentMetrics {
	m := &SentimentMetrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "refreshes_total",
			Help:      "Total number of sentiment refresh cycles, by result.",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of sentiment refresh cycles in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "score",
			Help:      "Most recently published sentiment score.",
		}),
	}

	reg.MustRegister(m.Refreshes, m.RefreshDuration, m.Score)
	return m
}
