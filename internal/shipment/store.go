package shipment

import (
	"context"

	id "exportgate/pkg/domain"
)

// SnapshotReader loads a point-in-time view of a shipment with its documents.
type SnapshotReader interface {
	Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*Snapshot, error)
}
