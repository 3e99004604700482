// Package document owns the per-document lifecycle: the state machine, the
// append-only transition log, and the expiry predicate.
//
// The document's state is the only core-owned mutable field. Everything else
// on the record (structured fields, content hash, review metadata) is
// supplied by collaborators and treated as read-only here.
package document

import (
	"fmt"
	"time"

	id "exportgate/pkg/domain"
)

// State is a document lifecycle state.
type State string

const (
	StateDraft            State = "DRAFT"
	StateUploaded         State = "UPLOADED"
	StateUnderReview      State = "UNDER_REVIEW"
	StateValidated        State = "VALIDATED"
	StateComplianceOK     State = "COMPLIANCE_OK"
	StateComplianceFailed State = "COMPLIANCE_FAILED"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
	StateArchived         State = "ARCHIVED"
	StateExpired          State = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateArchived || s == StateExpired
}

var validStates = map[State]struct{}{
	StateDraft: {}, StateUploaded: {}, StateUnderReview: {}, StateValidated: {},
	StateComplianceOK: {}, StateComplianceFailed: {}, StateApproved: {},
	StateRejected: {}, StateArchived: {}, StateExpired: {},
}

// ParseState validates a raw state value from a transport or stored record.
func ParseState(s string) (State, error) {
	state := State(s)
	if _, ok := validStates[state]; !ok {
		return "", fmt.Errorf("unknown document state %q", s)
	}
	return state, nil
}

// Document is a regulatory document attached to a shipment.
type Document struct {
	ID          id.DocumentID   `json:"id"`
	ShipmentID  id.ShipmentID   `json:"shipment_id"`
	Type        id.DocumentType `json:"type"`
	State       State           `json:"state"`
	Fields      map[string]any  `json:"fields,omitempty"`
	ContentHash string          `json:"content_hash,omitempty"`
	UploadedBy  id.ActorID      `json:"uploaded_by"`
	ReviewedBy  id.ActorID      `json:"reviewed_by"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Field returns a structured field as a string, with ok=false when the field
// is absent or not a string. Rules use this accessor so missing data becomes
// a failed result instead of a panic.
func (d *Document) Field(name string) (string, bool) {
	if d.Fields == nil {
		return "", false
	}
	v, ok := d.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NumericField returns a structured field as a float64.
func (d *Document) NumericField(name string) (float64, bool) {
	if d.Fields == nil {
		return 0, false
	}
	switch v := d.Fields[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// IsExpired is the pure expiry predicate. Scheduling the sweep is a
// collaborator concern; the core only answers the question.
func IsExpired(doc *Document, now time.Time) bool {
	if doc.ExpiresAt == nil || doc.State.IsTerminal() {
		return false
	}
	return !now.Before(*doc.ExpiresAt)
}

// Transition is an immutable record of a state change. The sequence of
// transitions for a document, replayed in order, always reconstructs its
// current state.
type Transition struct {
	ID         id.TransitionID   `json:"id"`
	DocumentID id.DocumentID     `json:"document_id"`
	From       State             `json:"from"`
	To         State             `json:"to"`
	ActorID    id.ActorID        `json:"actor_id"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Replay folds a transition sequence into the resulting state. It returns
// ErrBrokenChain if any link's From does not match the running state.
func Replay(transitions []Transition) (State, error) {
	state := StateDraft
	for _, tr := range transitions {
		if tr.From != state {
			return "", ErrBrokenChain
		}
		state = tr.To
	}
	return state, nil
}
