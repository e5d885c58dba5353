package metrics

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks gateway traffic by route template.
type HTTPMetrics struct {
	Latency   *prometheus.HistogramVec
	Responses *prometheus.CounterVec
	Active    prometheus.Gauge
	Throttled *prometheus.CounterVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of gateway requests in seconds, by route template.",
			// Partition and fan-out queries can take tens of seconds.
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route", "status_code"}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway responses, by route template and status.",
		}, []string{"method", "route", "status_code"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Gateway requests currently being served.",
		}),
		Throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter, by route template.",
		}, []string{"route"}),
	}

	reg.MustRegister(m.Latency, m.Responses, m.Active, m.Throttled)
	return m
}

// ObserveThrottled counts a rate-limited request. Safe on a nil receiver.
func (m *HTTPMetrics) ObserveThrottled(route string) {
	if m == nil {
		return
	}
	m.Throttled.WithLabelValues(route).Inc()
}

// Middleware records every route except those matched by skip. An entry
// ending in "*" matches by prefix, anything else must equal the route.
func (m *HTTPMetrics) Middleware(skip ...string) echo.MiddlewareFunc {
	skipped := routeMatcher(skip)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if skipped(route) {
				return next(c)
			}

			m.Active.Inc()
			defer m.Active.Dec()

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
				method := c.Request().Method
				status := strconv.Itoa(c.Response().Status)
				m.Latency.WithLabelValues(method, route, status).Observe(seconds)
				m.Responses.WithLabelValues(method, route, status).Inc()
			}))
			defer timer.ObserveDuration()

			return next(c)
		}
	}
}

func routeMatcher(patterns []string) func(string) bool {
	exact := make(map[string]struct{}, len(patterns))
	var prefixes []string
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			prefixes = append(prefixes, prefix)
			continue
		}
		exact[p] = struct{}{}
	}

	return func(route string) bool {
		if _, ok := exact[route]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(route, prefix) {
				return true
			}
		}
		return false
	}
}
