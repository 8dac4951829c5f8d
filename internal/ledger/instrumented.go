package ledger

import (
	"context"
	"errors"
	"time"

	ledgermetrics "crest/internal/ledger/metrics"
	"crest/pkg/platform/sentinel"
)

// Instrumented records Prometheus metrics for every gateway call.
type Instrumented struct {
	next    Gateway
	metrics *ledgermetrics.Metrics
}

func NewInstrumented(next Gateway, m *ledgermetrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrLedgerUnavailable):
		return "unavailable"
	case errors.Is(err, sentinel.ErrLedgerRejected):
		return "rejected"
	default:
		return "other"
	}
}

func (g *Instrumented) observeMint(kind string, start time.Time, err error) {
	g.metrics.CallDuration.WithLabelValues("mint_" + kind).Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.MintFailures.WithLabelValues(kind, failureClass(err)).Inc()
		return
	}
	g.metrics.Mints.WithLabelValues(kind).Inc()
}

func (g *Instrumented) observeRead(kind string, start time.Time, err error) {
	g.metrics.CallDuration.WithLabelValues("read_" + kind).Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.ReadFailures.WithLabelValues(kind, failureClass(err)).Inc()
		return
	}
	g.metrics.Reads.WithLabelValues(kind).Inc()
}

func (g *Instrumented) MintIdentity(ctx context.Context, institutionalID, name, contactRef string) (MintReceipt, error) {
	start := time.Now()
	receipt, err := g.next.MintIdentity(ctx, institutionalID, name, contactRef)
	g.observeMint("identity", start, err)
	return receipt, err
}

func (g *Instrumented) MintCertificate(ctx context.Context, ownerID, title, description, category string) (MintReceipt, error) {
	start := time.Now()
	receipt, err := g.next.MintCertificate(ctx, ownerID, title, description, category)
	g.observeMint("certificate", start, err)
	return receipt, err
}

func (g *Instrumented) MintBadge(ctx context.Context, ownerID, name, category, imageRef string) (MintReceipt, error) {
	start := time.Now()
	receipt, err := g.next.MintBadge(ctx, ownerID, name, category, imageRef)
	g.observeMint("badge", start, err)
	return receipt, err
}

func (g *Instrumented) ReadIdentity(ctx context.Context, institutionalID string) (IdentityRecord, error) {
	start := time.Now()
	record, err := g.next.ReadIdentity(ctx, institutionalID)
	g.observeRead("identity", start, err)
	return record, err
}

func (g *Instrumented) ReadCertificate(ctx context.Context, recordID int64) (CertificateRecord, error) {
	start := time.Now()
	record, err := g.next.ReadCertificate(ctx, recordID)
	g.observeRead("certificate", start, err)
	return record, err
}

func (g *Instrumented) ReadBadge(ctx context.Context, recordID int64) (BadgeRecord, error) {
	start := time.Now()
	record, err := g.next.ReadBadge(ctx, recordID)
	g.observeRead("badge", start, err)
	return record, err
}

func (g *Instrumented) VerifyIdentity(ctx context.Context, institutionalID string) (bool, error) {
	start := time.Now()
	valid, err := g.next.VerifyIdentity(ctx, institutionalID)
	g.observeRead("identity_verify", start, err)
	return valid, err
}
