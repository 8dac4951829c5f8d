package ledger

import (
	"context"
	"errors"
	"log/slog"

	"crest/pkg/platform/circuit"
	"crest/pkg/platform/sentinel"
)

// WithBreaker wraps a gateway with a circuit breaker. After consecutive
// unavailable-class failures the breaker opens and calls short-circuit to
// sentinel.ErrLedgerUnavailable until the ledger answers again.
//
// Rejections (the ledger answered and said no) do not trip the breaker.
type WithBreaker struct {
	next    Gateway
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewWithBreaker(next Gateway, breaker *circuit.Breaker, logger *slog.Logger) *WithBreaker {
	return &WithBreaker{next: next, breaker: breaker, logger: logger}
}

func (g *WithBreaker) observe(ctx context.Context, err error) {
	if err == nil || errors.Is(err, sentinel.ErrLedgerRejected) {
		_, change := g.breaker.RecordSuccess()
		if change.Closed {
			g.logger.InfoContext(ctx, "ledger circuit closed", "breaker", g.breaker.Name())
		}
		return
	}
	if errors.Is(err, sentinel.ErrLedgerUnavailable) {
		_, change := g.breaker.RecordFailure()
		if change.Opened {
			g.logger.WarnContext(ctx, "ledger circuit opened", "breaker", g.breaker.Name())
		}
	}
}

func (g *WithBreaker) MintIdentity(ctx context.Context, institutionalID, name, contactRef string) (MintReceipt, error) {
	if g.breaker.IsOpen() {
		return MintReceipt{}, sentinel.ErrLedgerUnavailable
	}
	receipt, err := g.next.MintIdentity(ctx, institutionalID, name, contactRef)
	g.observe(ctx, err)
	return receipt, err
}

func (g *WithBreaker) MintCertificate(ctx context.Context, ownerID, title, description, category string) (MintReceipt, error) {
	if g.breaker.IsOpen() {
		return MintReceipt{}, sentinel.ErrLedgerUnavailable
	}
	receipt, err := g.next.MintCertificate(ctx, ownerID, title, description, category)
	g.observe(ctx, err)
	return receipt, err
}

func (g *WithBreaker) MintBadge(ctx context.Context, ownerID, name, category, imageRef string) (MintReceipt, error) {
	if g.breaker.IsOpen() {
		return MintReceipt{}, sentinel.ErrLedgerUnavailable
	}
	receipt, err := g.next.MintBadge(ctx, ownerID, name, category, imageRef)
	g.observe(ctx, err)
	return receipt, err
}

func (g *WithBreaker) ReadIdentity(ctx context.Context, institutionalID string) (IdentityRecord, error) {
	if g.breaker.IsOpen() {
		return IdentityRecord{}, sentinel.ErrLedgerUnavailable
	}
	record, err := g.next.ReadIdentity(ctx, institutionalID)
	g.observe(ctx, err)
	return record, err
}

func (g *WithBreaker) ReadCertificate(ctx context.Context, recordID int64) (CertificateRecord, error) {
	if g.breaker.IsOpen() {
		return CertificateRecord{}, sentinel.ErrLedgerUnavailable
	}
	record, err := g.next.ReadCertificate(ctx, recordID)
	g.observe(ctx, err)
	return record, err
}

func (g *WithBreaker) ReadBadge(ctx context.Context, recordID int64) (BadgeRecord, error) {
	if g.breaker.IsOpen() {
		return BadgeRecord{}, sentinel.ErrLedgerUnavailable
	}
	record, err := g.next.ReadBadge(ctx, recordID)
	g.observe(ctx, err)
	return record, err
}

func (g *WithBreaker) VerifyIdentity(ctx context.Context, institutionalID string) (bool, error) {
	if g.breaker.IsOpen() {
		return false, sentinel.ErrLedgerUnavailable
	}
	valid, err := g.next.VerifyIdentity(ctx, institutionalID)
	g.observe(ctx, err)
	return valid, err
}
