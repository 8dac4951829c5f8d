package models

import (
	"strings"
	"time"

	id "crest/pkg/domain"

	dErrors "crest/pkg/domain-errors"
)

// Kind discriminates the two credential shapes.
type Kind string

const (
	KindCertificate Kind = "certificate"
	KindBadge       Kind = "badge"
)

// ParseKind constructs a Kind from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCertificate, KindBadge:
		return Kind(s), nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind cannot be empty")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind must be certificate or badge")
	}
}

// Credential is a certificate or badge tied to one identity. The primary
// store is authoritative; ledger references are supplementary proof and are
// attached only as a pair: LedgerTxRef and LedgerRecordID are either both
// present or both absent.
//
// Badges are owned immediately; certificates must be claimed by the recipient
// before they surface as owned (Claimed starts false, ClaimTokenHash holds
// the bcrypt hash of the one-time claim token).
type Credential struct {
	ID             id.CredentialID
	Kind           Kind
	Title          string
	Description    string
	Category       string
	ImageRef       string
	Recipient      id.UserID
	Issuer         id.UserID
	RelatedEvent   id.EventID
	LedgerTxRef    string
	LedgerRecordID int64
	IssuedAt       time.Time
	Claimed        bool
	ClaimTokenHash string
}

// New validates invariants and constructs a Credential. Badges are created
// already claimed since they carry no acknowledgement step.
func New(credentialID id.CredentialID, kind Kind, title, description, category, imageRef string,
	recipient, issuer id.UserID, relatedEvent id.EventID, issuedAt time.Time) (Credential, error) {

	title = strings.TrimSpace(title)
	if title == "" {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	}
	if credentialID.IsZero() {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "credential id is required")
	}
	if recipient.IsZero() {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "recipient is required")
	}
	if issuer.IsZero() {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "issuer is required")
	}
	if kind != KindCertificate && kind != KindBadge {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "unsupported credential kind")
	}
	if issuedAt.IsZero() {
		return Credential{}, dErrors.New(dErrors.CodeInvariantViolation, "issued_at is required")
	}

	return Credential{
		ID:           credentialID,
		Kind:         kind,
		Title:        title,
		Description:  strings.TrimSpace(description),
		Category:     strings.TrimSpace(category),
		ImageRef:     strings.TrimSpace(imageRef),
		Recipient:    recipient,
		Issuer:       issuer,
		RelatedEvent: relatedEvent,
		IssuedAt:     issuedAt,
		Claimed:      kind == KindBadge,
	}, nil
}

// Anchored reports whether the credential carries its ledger reference pair.
func (c Credential) Anchored() bool {
	return c.LedgerTxRef != "" && c.LedgerRecordID != 0
}
