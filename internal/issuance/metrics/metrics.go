package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for barcode issuance.
type Metrics struct {
	// Barcodes produced, by certificate kind
	Generated *prometheus.CounterVec

	// Per-record failures by kind and result code
	Failed *prometheus.CounterVec

	// Whole-bundle generation latency by kind
	Duration *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return &Metrics{
		Generated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hcert_barcodes_generated_total",
			Help: "Total barcodes generated by certificate kind",
		}, []string{"kind"}),

		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hcert_barcodes_failed_total",
			Help: "Total per-record barcode failures by certificate kind and result code",
		}, []string{"kind", "code"}),

		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hcert_barcode_generation_seconds",
			Help:    "Duration of a full barcode generation call",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
	}
}

// IncrementGenerated records one successful barcode.
func (m *Metrics) IncrementGenerated(kind string) {
	if m != nil {
		m.Generated.WithLabelValues(kind).Inc()
	}
}

// IncrementFailed records one failed record.
func (m *Metrics) IncrementFailed(kind, code string) {
	if m != nil {
		m.Failed.WithLabelValues(kind, code).Inc()
	}
}

// ObserveDuration records the latency of one generation call.
func (m *Metrics) ObserveDuration(kind string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(kind).Observe(d.Seconds())
	}
}
