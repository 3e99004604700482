package audit

import (
	"time"

	id "exportgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	ShipmentID id.ShipmentID `json:"shipment_id"`
	DocumentID id.DocumentID `json:"document_id"` // zero when the event is shipment-level
	ActorID    id.ActorID    `json:"actor_id"`
	Action     string        `json:"action"`
	Decision   string        `json:"decision,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
}

// Action names every audit event the core emits.
type Action string

const (
	// Document lifecycle events
	EventDocumentTransitioned Action = "document_transitioned"
	EventDocumentExpired      Action = "document_expired"

	// Shipment-level compliance events
	EventDecisionMade    Action = "decision_made"
	EventOverrideApplied Action = "override_applied"

	// Audit pack events
	EventPackGenerated        Action = "audit_pack_generated"
	EventPackGenerationFailed Action = "audit_pack_generation_failed"
	EventPackMarkedOutdated   Action = "audit_pack_marked_outdated"
)

// eventCategories maps each action to its category. Compliance events require
// tamper-proof storage; operations events may be sampled.
var eventCategories = map[Action]EventCategory{
	EventDocumentTransitioned: CategoryCompliance,
	EventDocumentExpired:      CategoryCompliance,
	EventDecisionMade:         CategoryCompliance,
	EventOverrideApplied:      CategoryCompliance,
	EventPackGenerated:        CategoryCompliance,
	EventPackGenerationFailed: CategoryOperations,
	EventPackMarkedOutdated:   CategoryOperations,
}

// Category resolves the category for an action, defaulting to operations for
// unknown actions so nothing is silently promoted to the compliance stream.
func (a Action) Category() EventCategory {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategoryOperations
}
