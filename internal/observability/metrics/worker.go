package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

// IngestionMetrics tracks collection rebuilds. It satisfies ports.IngestionObserver.
type IngestionMetrics struct {
	registry *prometheus.Registry
	service  string
	*ResilienceMetrics

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runsInFlight    prometheus.Gauge
	chunksIndexed   prometheus.Gauge
	skippedEntities *prometheus.CounterVec
	queueLag        prometheus.Histogram
}

func NewIngestionMetrics(service string) *IngestionMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total collection rebuilds by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Collection rebuild duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ingestion",
			Name:        "runs_in_flight",
			Help:        "Number of rebuilds currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	chunksIndexed := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ingestion",
			Name:        "chunks_indexed",
			Help:        "Chunks indexed by the last successful rebuild.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	skippedEntities := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "skipped_entities_total",
			Help:      "Entities whose source document could not be loaded.",
		},
		[]string{"service", "entity"},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ingestion",
			Name:        "queue_lag_seconds",
			Help:        "Delay between a rebuild request and the start of the rebuild.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	resilience := newResilienceMetrics(service)
	registry.MustRegister(runsTotal, runDuration, runsInFlight, chunksIndexed, skippedEntities, queueLag)
	resilience.register(registry)

	return &IngestionMetrics{
		registry:          registry,
		service:           service,
		ResilienceMetrics: resilience,
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		runsInFlight:      runsInFlight,
		chunksIndexed:     chunksIndexed,
		skippedEntities:   skippedEntities,
		queueLag:          queueLag,
	}
}

func (m *IngestionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestionMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *IngestionMetrics) ObserveIngestion(report domain.IngestionReport, err error) {
	status := string(domain.RunStatusReady)
	if err != nil {
		status = string(domain.RunStatusFailed)
	}
	m.runsTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(report.Duration().Seconds())
	for _, skipped := range report.Skipped {
		m.skippedEntities.WithLabelValues(m.service, skipped.Entity).Inc()
	}
	if err == nil {
		m.chunksIndexed.Set(float64(report.Indexed))
	}
}

func (m *IngestionMetrics) FinishRun() {
	m.runsInFlight.Dec()
}

func (m *IngestionMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
