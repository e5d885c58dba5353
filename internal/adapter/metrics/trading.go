package metrics

import "github.com/prometheus/client_golang/prometheus"

type TradingMetrics struct {
	Actions *prometheus.CounterVec
}

func NewTradingMetrics(reg prometheus.Registerer) *TradingMetrics {
	m := &TradingMetrics{
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "actions_total",
			Help:      "Total number of trading decisions, by kind and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(m.Actions)
	return m
}
