package domain

import dErrors "crest/pkg/domain-errors"

// Role is the campus role carried in access tokens.
// Invariant: the value must be one of the supported roles.
type Role string

const (
	RoleStudent      Role = "student"
	RoleFaculty      Role = "faculty"
	RoleClubAdmin    Role = "club_admin"
	RoleCollegeAdmin Role = "college_admin"
)

var validRoles = map[Role]bool{
	RoleStudent:      true,
	RoleFaculty:      true,
	RoleClubAdmin:    true,
	RoleCollegeAdmin: true,
}

// ParseRole constructs a Role from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanIssueCredentials reports whether the role may author certificates and
// badges. Only club and college administrators have issuance authority.
func (r Role) CanIssueCredentials() bool {
	return r == RoleClubAdmin || r == RoleCollegeAdmin
}
