package audit

import (
	"context"
	"time"

	id "crest/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Actor     id.UserID
	Action    string
	Subject   string
	RequestID string
}

// Actions recorded by the credential subsystem.
const (
	ActionIdentityAllocated = "identity.allocated"
	ActionCredentialIssued  = "credential.issued"
	ActionCredentialClaimed = "credential.claimed"
	ActionLedgerAnchored    = "credential.ledger_anchored"
)

// Store is the append-only persistence port for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
