package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Record store metrics
	RecordsLoaded      prometheus.Gauge
	RecordLoadWarnings *prometheus.GaugeVec

	// Generation metrics
	GenerationRequests *prometheus.CounterVec
	GenerationLatency  *prometheus.HistogramVec
	GenerationRetries  prometheus.Counter

	// Ledger metrics
	LedgerOperations *prometheus.CounterVec
	LedgerLatency    *prometheus.HistogramVec

	// Export metrics
	ExportsTotal *prometheus.CounterVec
	ExportBytes  prometheus.Histogram
}

// NewMetrics creates all application metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecordsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "loaded",
			Help:      "Number of patient records held in memory",
		}),
		RecordLoadWarnings: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "load_warnings",
			Help:      "Data-quality warnings raised while loading the patient file",
		}, []string{"kind"}),

		GenerationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of text generation calls",
		}, []string{"backend", "status"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Duration of text generation calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend"}),
		GenerationRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "retry_attempts_total",
			Help:      "Total number of retried generation attempts",
		}),

		LedgerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of summary ledger operations",
		}, []string{"operation", "status"}),
		LedgerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of summary ledger operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "documents_total",
			Help:      "Total number of exported discharge documents",
		}, []string{"source", "status"}),
		ExportBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "document_bytes",
			Help:      "Size of exported discharge documents",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 10),
		}),
	}
}

// Status returns the label used for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
