package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics shared across packages.
type Metrics struct {
	UVCICollisions prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		UVCICollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hcert_uvci_collisions_total",
			Help: "Total generated identifiers rejected because they were already allocated",
		}),
	}
}

// IncrementUVCICollisions increments the collision counter by 1
func (m *Metrics) IncrementUVCICollisions() {
	m.UVCICollisions.Inc()
}
