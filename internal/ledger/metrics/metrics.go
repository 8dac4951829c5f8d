package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for ledger gateway traffic.
type Metrics struct {
	Mints        *prometheus.CounterVec
	MintFailures *prometheus.CounterVec
	Reads        *prometheus.CounterVec
	ReadFailures *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// New creates and registers all ledger metrics.
func New() *Metrics {
	return &Metrics{
		Mints: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_ledger_mints_total",
			Help: "Total successful ledger mint calls by record kind",
		}, []string{"kind"}),
		MintFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_ledger_mint_failures_total",
			Help: "Total failed ledger mint calls by record kind and class",
		}, []string{"kind", "class"}),
		Reads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_ledger_reads_total",
			Help: "Total successful ledger read calls by record kind",
		}, []string{"kind"}),
		ReadFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_ledger_read_failures_total",
			Help: "Total failed ledger read calls by record kind and class",
		}, []string{"kind", "class"}),
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crest_ledger_call_duration_seconds",
			Help:    "Ledger relay round trip duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
