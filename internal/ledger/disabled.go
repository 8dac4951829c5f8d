package ledger

import (
	"context"

	"crest/pkg/platform/sentinel"
)

// Disabled is the gateway used when ledger connectivity is unconfigured.
// Every call fails fast with sentinel.ErrLedgerUnavailable instead of raising
// a low-level transport error.
type Disabled struct{}

func NewDisabled() Disabled { return Disabled{} }

func (Disabled) MintIdentity(context.Context, string, string, string) (MintReceipt, error) {
	return MintReceipt{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) MintCertificate(context.Context, string, string, string, string) (MintReceipt, error) {
	return MintReceipt{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) MintBadge(context.Context, string, string, string, string) (MintReceipt, error) {
	return MintReceipt{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) ReadIdentity(context.Context, string) (IdentityRecord, error) {
	return IdentityRecord{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) ReadCertificate(context.Context, int64) (CertificateRecord, error) {
	return CertificateRecord{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) ReadBadge(context.Context, int64) (BadgeRecord, error) {
	return BadgeRecord{}, sentinel.ErrLedgerUnavailable
}

func (Disabled) VerifyIdentity(context.Context, string) (bool, error) {
	return false, sentinel.ErrLedgerUnavailable
}
