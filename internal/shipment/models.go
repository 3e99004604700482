// Package shipment provides the read-side snapshot of a shipment and its
// documents. The compliance core never mutates shipment records; it only
// reads classification codes and the attached document set.
package shipment

import (
	"time"

	"exportgate/internal/document"
	id "exportgate/pkg/domain"
)

// Shipment is the collaborator-owned shipment record, read-only here.
type Shipment struct {
	ID                  id.ShipmentID
	OrganizationID      id.OrganizationID
	Reference           string
	ClassificationCodes []string
	Status              string
	CreatedAt           time.Time
}

// Snapshot is a consistent-at-a-point-in-time view of a shipment and its
// documents, produced by a single snapshot read rather than staggered reads.
type Snapshot struct {
	Shipment  *Shipment
	Documents []*document.Document
	TakenAt   time.Time
}

// PrimaryClassification returns the first classification code; rules treat it
// as the cargo's leading code when a shipment carries several.
func (s *Snapshot) PrimaryClassification() string {
	if s.Shipment == nil || len(s.Shipment.ClassificationCodes) == 0 {
		return ""
	}
	return s.Shipment.ClassificationCodes[0]
}
