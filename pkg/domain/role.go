package domain

import "exportgate/pkg/domainerr"

// Role is the actor's already-resolved authorization level. The identity
// collaborator resolves it; the core only checks it against operation
// requirements.
type Role string

const (
	// RoleMember may upload documents and resubmit after a compliance failure.
	RoleMember Role = "member"
	// RoleReviewer may move documents through review.
	RoleReviewer Role = "reviewer"
	// RoleCompliance may run compliance checks, approve documents, and
	// override shipment decisions.
	RoleCompliance Role = "compliance"
	// RoleAdmin may archive documents and holds every other permission.
	RoleAdmin Role = "admin"
	// RoleSystem is used for scheduled operations such as expiry sweeps.
	RoleSystem Role = "system"
)

var validRoles = map[Role]bool{
	RoleMember:     true,
	RoleReviewer:   true,
	RoleCompliance: true,
	RoleAdmin:      true,
	RoleSystem:     true,
}

// roleRank orders roles by privilege so a higher role satisfies a lower
// requirement. RoleSystem sits outside the hierarchy: it only satisfies
// operations that explicitly require it.
var roleRank = map[Role]int{
	RoleMember:     1,
	RoleReviewer:   2,
	RoleCompliance: 3,
	RoleAdmin:      4,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", domainerr.New(domainerr.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", domainerr.Newf(domainerr.CodeValidation, "unsupported role %q", s)
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// Satisfies reports whether r meets the given requirement.
func (r Role) Satisfies(required Role) bool {
	if required == RoleSystem {
		return r == RoleSystem
	}
	return roleRank[r] >= roleRank[required]
}

// IsElevated reports whether the role may apply compliance overrides.
func (r Role) IsElevated() bool {
	return r == RoleCompliance || r == RoleAdmin
}
