package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	id "crest/pkg/domain"

	dErrors "crest/pkg/domain-errors"
)

// IdentityRecord is the durable, one-per-user institutional identifier.
// InstitutionalID is immutable once assigned and never reallocated.
type IdentityRecord struct {
	InstitutionalID string
	Owner           id.UserID
	LedgerTxRef     string
	AssignedAt      time.Time
}

// Identifier layout: YY CC DD NNNN
//   - YY: last two digits of the admission year
//   - CC: institution code, two characters
//   - DD: department code, normalized to two characters
//   - NNNN: zero-padded per-prefix sequence, strictly increasing
const (
	PrefixLen      = 6
	SequenceDigits = 4
	MaxSequence    = 9999
)

var departmentCodePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Prefix derives the year+institution+department substring that scopes
// sequence uniqueness.
// Errors: CodeValidation when the year or department code is unusable.
func Prefix(admissionYear int, institutionCode, departmentCode string) (string, error) {
	if admissionYear < 1000 || admissionYear > 9999 {
		return "", dErrors.New(dErrors.CodeValidation, "admission year must be a 4-digit calendar year")
	}
	if len(institutionCode) != 2 {
		return "", dErrors.New(dErrors.CodeValidation, "institution code must be exactly 2 characters")
	}
	departmentCode = strings.TrimSpace(departmentCode)
	if departmentCode == "" || !departmentCodePattern.MatchString(departmentCode) {
		return "", dErrors.New(dErrors.CodeValidation, "department code must be a short alphanumeric code")
	}
	return fmt.Sprintf("%02d%s%s", admissionYear%100, institutionCode, normalizeDepartment(departmentCode)), nil
}

// FormatIdentifier concatenates a prefix with a zero-padded sequence.
func FormatIdentifier(prefix string, sequence int) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceDigits, sequence)
}

// normalizeDepartment zero-pads or truncates the code to 2 upper-case chars.
func normalizeDepartment(code string) string {
	code = strings.ToUpper(code)
	if len(code) >= 2 {
		return code[:2]
	}
	return code + strings.Repeat("0", 2-len(code))
}
