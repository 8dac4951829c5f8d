package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for credential issuance and verification.
type Metrics struct {
	Issued          *prometheus.CounterVec
	IssueErrors     prometheus.Counter
	Claims          prometheus.Counter
	Verifications   *prometheus.CounterVec
	AnchorsAttached prometheus.Counter
}

// New creates and registers all credential metrics.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_credentials_issued_total",
			Help: "Total credentials issued, by kind",
		}, []string{"kind"}),
		IssueErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_credential_issue_errors_total",
			Help: "Total failed credential issuances",
		}),
		Claims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_credential_claims_total",
			Help: "Total certificates claimed by recipients",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crest_credential_verifications_total",
			Help: "Total verification lookups, by result",
		}, []string{"result"}),
		AnchorsAttached: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crest_credential_anchors_attached_total",
			Help: "Total ledger reference pairs attached to credentials",
		}),
	}
}
