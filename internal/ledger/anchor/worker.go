// Package anchor reconciles credentials that missed their issue-time mint.
//
// Issuance never waits on the ledger, so an outage leaves records without
// ledger references. The worker sweeps those on a fixed interval and retries
// the mint until each record carries its reference pair.
package anchor

import (
	"context"
	"log/slog"
	"time"

	"crest/internal/audit"
	"crest/internal/credential/models"
	identitymodels "crest/internal/identity/models"
	"crest/internal/ledger"
	id "crest/pkg/domain"
)

// CredentialStore is the slice of credential persistence the worker needs.
type CredentialStore interface {
	ListUnanchored(ctx context.Context, limit int) ([]models.Credential, error)
	AttachLedgerRefs(ctx context.Context, credentialID id.CredentialID, txRef string, recordID int64) error
	MarkAnchorAttempts(ctx context.Context, ids []id.CredentialID, at time.Time) error
}

// IdentityLookup resolves the recipient's institutional identifier for the
// mint payload.
type IdentityLookup interface {
	FindByOwner(ctx context.Context, owner id.UserID) (identitymodels.IdentityRecord, error)
}

// AuditPublisher records successful late anchors.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Worker retries ledger mints for unanchored credentials.
type Worker struct {
	store      CredentialStore
	identities IdentityLookup
	gateway    ledger.Gateway
	logger     *slog.Logger
	audit      AuditPublisher
	interval   time.Duration
	batchSize  int
}

// Option configures a Worker.
type Option func(*Worker)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(w *Worker) { w.audit = publisher }
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) { w.interval = interval }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) { w.batchSize = size }
}

// New constructs an anchor worker. Defaults: 1 minute interval, batches of 50.
func New(store CredentialStore, identities IdentityLookup, gateway ledger.Gateway, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:      store,
		identities: identities,
		gateway:    gateway,
		logger:     logger,
		interval:   time.Minute,
		batchSize:  50,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of unanchored credentials. Every selected record
// gets an attempt stamp whether or not its mint lands, so a stuck record
// rotates to the back of the queue instead of starving the rest.
func (w *Worker) Sweep(ctx context.Context) {
	credentials, err := w.store.ListUnanchored(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "anchor sweep failed to list credentials", "error", err)
		return
	}
	if len(credentials) == 0 {
		return
	}

	attempted := make([]id.CredentialID, 0, len(credentials))
	anchored := 0
	for _, credential := range credentials {
		attempted = append(attempted, credential.ID)
		if w.anchor(ctx, credential) {
			anchored++
		}
	}

	if err := w.store.MarkAnchorAttempts(ctx, attempted, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "failed to mark anchor attempts", "error", err)
	}
	w.logger.InfoContext(ctx, "anchor sweep complete",
		"attempted", len(attempted), "anchored", anchored)
}

func (w *Worker) anchor(ctx context.Context, credential models.Credential) bool {
	identity, err := w.identities.FindByOwner(ctx, credential.Recipient)
	if err != nil {
		w.logger.WarnContext(ctx, "anchor skipped, recipient identity unresolved",
			"credential_id", credential.ID.String(), "error", err)
		return false
	}

	var receipt ledger.MintReceipt
	switch credential.Kind {
	case models.KindCertificate:
		receipt, err = w.gateway.MintCertificate(ctx,
			identity.InstitutionalID, credential.Title, credential.Description, credential.Category)
	case models.KindBadge:
		receipt, err = w.gateway.MintBadge(ctx,
			identity.InstitutionalID, credential.Title, credential.Category, credential.ImageRef)
	default:
		return false
	}
	if err != nil {
		w.logger.WarnContext(ctx, "anchor mint failed",
			"credential_id", credential.ID.String(), "error", err)
		return false
	}
	if !receipt.HasRecordID {
		w.logger.WarnContext(ctx, "anchor mint receipt missing record id",
			"credential_id", credential.ID.String(), "tx_ref", receipt.TxRef)
		return false
	}

	if err := w.store.AttachLedgerRefs(ctx, credential.ID, receipt.TxRef, receipt.RecordID); err != nil {
		w.logger.ErrorContext(ctx, "failed to attach ledger refs during sweep",
			"credential_id", credential.ID.String(), "error", err)
		return false
	}

	if w.audit != nil {
		_ = w.audit.Emit(ctx, audit.Event{
			Action:  audit.ActionLedgerAnchored,
			UserID:  credential.Recipient,
			Subject: credential.ID.String(),
		})
	}
	return true
}
