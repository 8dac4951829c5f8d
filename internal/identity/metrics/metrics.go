package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for identifier allocation.
type Metrics struct {
	Allocated         prometheus.Counter
	AllocationErrors  prometheus.Counter
	IdempotentReturns prometheus.Counter
}

// New creates and registers all identity metrics.
func New() *Metrics {
	return &Metrics{
		Allocated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_identities_allocated_total",
			Help: "Total institutional identifiers allocated",
		}),
		AllocationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_identity_allocation_errors_total",
			Help: "Total failed identifier allocations",
		}),
		IdempotentReturns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_identity_idempotent_returns_total",
			Help: "Total ensure calls that returned an existing identifier",
		}),
	}
}
