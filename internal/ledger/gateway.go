// Package ledger defines the gateway to the external append-only ledger.
//
// The ledger is a supplementary proof store, never authoritative. Callers must
// treat sentinel.ErrLedgerUnavailable as an expected, non-fatal condition: the
// primary store remains the source of truth whether or not a mint lands.
package ledger

import (
	"context"
	"time"
)

// MintReceipt is the outcome of a successful mint call.
//
// RecordID is extracted from the receipt's event log. Extraction fails closed:
// when the log shape does not match the expected contract event, HasRecordID
// is false and callers must not attach any ledger reference to the record.
type MintReceipt struct {
	TxRef       string
	RecordID    int64
	HasRecordID bool
}

// IdentityRecord is the ledger's view of an institutional identity.
type IdentityRecord struct {
	InstitutionalID string
	Name            string
	ContactRef      string
	Valid           bool
}

// CertificateRecord is the ledger's view of a certificate.
type CertificateRecord struct {
	OwnerID     string
	Title       string
	Description string
	Category    string
	Valid       bool
	IssuedAt    time.Time
}

// BadgeRecord is the ledger's view of a badge.
type BadgeRecord struct {
	OwnerID  string
	Name     string
	Category string
	ImageRef string
	Valid    bool
}

// Gateway wraps connectivity to the ledger. Implementations must honor the
// configured timeout and classify failures:
//   - sentinel.ErrLedgerUnavailable: unconfigured, unreachable, or timed out
//   - sentinel.ErrLedgerRejected: reachable but the ledger refused the call
//
// Mints are external and irreversible; compensating actions belong to callers.
type Gateway interface {
	MintIdentity(ctx context.Context, institutionalID, name, contactRef string) (MintReceipt, error)
	MintCertificate(ctx context.Context, ownerID, title, description, category string) (MintReceipt, error)
	MintBadge(ctx context.Context, ownerID, name, category, imageRef string) (MintReceipt, error)

	ReadIdentity(ctx context.Context, institutionalID string) (IdentityRecord, error)
	ReadCertificate(ctx context.Context, recordID int64) (CertificateRecord, error)
	ReadBadge(ctx context.Context, recordID int64) (BadgeRecord, error)

	VerifyIdentity(ctx context.Context, institutionalID string) (bool, error)
}
