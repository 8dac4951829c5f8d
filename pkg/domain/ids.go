package domain

import (
	"github.com/google/uuid"

	dErrors "crest/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. Construct via the
// Parse helpers at trust boundaries; direct casting bypasses validation.
type (
	// UserID identifies a campus user (student, faculty, or admin).
	UserID uuid.UUID

	// CredentialID identifies a certificate or badge record.
	CredentialID uuid.UUID

	// EventID identifies an originating campus event.
	EventID uuid.UUID
)

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses external input into a UserID.
// Errors: CodeInvalidInput when empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseCredentialID parses external input into a CredentialID.
// Errors: CodeInvalidInput when empty, malformed, or the nil UUID.
func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CredentialID{}, err
	}
	return CredentialID(u), nil
}

// ParseEventID parses external input into an EventID.
// Errors: CodeInvalidInput when empty, malformed, or the nil UUID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
