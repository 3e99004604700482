package auditpack

import (
	"context"

	id "exportgate/pkg/domain"
)

// Store persists the single current pack record per shipment.
//
// BeginGeneration is the single-flight gate: it moves the record to
// GENERATING only when it is not already GENERATING, returning the prior pack
// for rollback. An in-flight generation makes it return
// sentinel.ErrInvalidState, which the service surfaces as
// GENERATION_IN_PROGRESS.
type Store interface {
	Get(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error)
	BeginGeneration(ctx context.Context, shipmentID id.ShipmentID) (prior *Pack, err error)
	// Complete replaces the GENERATING record with the finished pack.
	Complete(ctx context.Context, pack *Pack) error
	// Restore rolls a failed or cancelled generation back to the prior pack.
	Restore(ctx context.Context, shipmentID id.ShipmentID, prior *Pack) error
	// MarkOutdated moves READY to OUTDATED; any other status is left alone.
	MarkOutdated(ctx context.Context, shipmentID id.ShipmentID) error
}
