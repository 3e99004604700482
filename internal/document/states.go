package document

import (
	"errors"

	id "exportgate/pkg/domain"
)

// ErrBrokenChain indicates a transition log whose links do not connect.
var ErrBrokenChain = errors.New("transition chain does not replay to a consistent state")

type edge struct {
	from State
	to   State
}

// transitionTable declares every legal (from, to) pair and the minimum role
// required to perform it. A pair absent from this table is an invalid
// transition regardless of role.
//
// COMPLIANCE_FAILED carries the only return edges (resubmission after fixing
// the document); every other transition is one-directional. EXPIRED is not in
// the table: it is reached from any non-terminal state through Expire, gated
// by the IsExpired predicate.
var transitionTable = map[edge]id.Role{
	{StateDraft, StateUploaded}:                id.RoleMember,
	{StateUploaded, StateUnderReview}:          id.RoleReviewer,
	{StateUnderReview, StateValidated}:         id.RoleReviewer,
	{StateUnderReview, StateRejected}:          id.RoleReviewer,
	{StateValidated, StateComplianceOK}:        id.RoleCompliance,
	{StateValidated, StateComplianceFailed}:    id.RoleCompliance,
	{StateComplianceFailed, StateValidated}:    id.RoleMember,
	{StateComplianceFailed, StateComplianceOK}: id.RoleCompliance,
	{StateComplianceOK, StateApproved}:         id.RoleCompliance,
	{StateApproved, StateArchived}:             id.RoleAdmin,
	{StateRejected, StateArchived}:             id.RoleAdmin,
}

// RequiredRole returns the minimum role for a (from, to) pair, with ok=false
// when the pair is not a legal transition.
func RequiredRole(from, to State) (id.Role, bool) {
	role, ok := transitionTable[edge{from, to}]
	return role, ok
}

// MinimumRoleInto returns the least role among all table edges entering to,
// with ok=false when no edge enters it. An actor below this role can never
// reach the state, whatever the starting point.
func MinimumRoleInto(to State) (id.Role, bool) {
	var least id.Role
	found := false
	for e, role := range transitionTable {
		if e.to != to {
			continue
		}
		if !found || least.Satisfies(role) {
			least = role
			found = true
		}
	}
	return least, found
}
