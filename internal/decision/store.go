package decision

import (
	"context"

	id "exportgate/pkg/domain"
)

// Store persists compliance reports as an append-only history per shipment.
//
// Save must reject a report whose Version is not exactly the shipment's
// latest version plus one, returning sentinel.ErrConflict; this serializes
// concurrent decide-and-override sequences per shipment.
type Store interface {
	Save(ctx context.Context, report Report) error
	LatestByShipment(ctx context.Context, shipmentID id.ShipmentID) (*Report, error)
	ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]Report, error)
}
