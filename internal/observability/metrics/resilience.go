package metrics

import "github.com/prometheus/client_golang/prometheus"

// ResilienceMetrics exports retry attempts and circuit breaker transitions of outbound calls.
type ResilienceMetrics struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceMetrics(service string) *ResilienceMetrics {
	return &ResilienceMetrics{
		service: service,
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbound",
				Name:      "retries_total",
				Help:      "Retried outbound calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "outbound",
				Name:      "breaker_open",
				Help:      "1 while the operation's circuit breaker is open or half-open.",
			},
			[]string{"service", "operation"},
		),
	}
}

func (m *ResilienceMetrics) register(registry *prometheus.Registry) {
	registry.MustRegister(m.retriesTotal, m.breakerState)
}

func (m *ResilienceMetrics) ObserveRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *ResilienceMetrics) ObserveBreakerState(operation, state string) {
	v := 1.0
	if state == "closed" {
		v = 0
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
