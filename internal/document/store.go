package document

import (
	"context"

	id "exportgate/pkg/domain"
)

// Store persists documents and their append-only transition log.
//
// AppendTransition must be atomic with respect to the document's prior state:
// the transition is only recorded if the document's current state equals
// tr.From at commit time. A mismatch returns sentinel.ErrConflict so the
// caller can reload and retry.
type Store interface {
	FindByID(ctx context.Context, documentID id.DocumentID) (*Document, error)
	ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]*Document, error)
	AppendTransition(ctx context.Context, tr Transition) error
	ListTransitions(ctx context.Context, documentID id.DocumentID) ([]Transition, error)
}
