package shipment

import (
	"context"
	"sort"
	"sync"

	"exportgate/internal/document"
	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
	"exportgate/pkg/requestcontext"
)

// InMemoryReader composes an in-process shipment table with the document
// store. Both reads happen under the document store's own synchronization,
// which is close enough to a point-in-time snapshot for tests and dev mode.
type InMemoryReader struct {
	mu        sync.RWMutex
	shipments map[id.ShipmentID]*Shipment
	documents *document.InMemoryStore
}

func NewInMemoryReader(documents *document.InMemoryStore) *InMemoryReader {
	return &InMemoryReader{
		shipments: make(map[id.ShipmentID]*Shipment),
		documents: documents,
	}
}

// Seed inserts a shipment record, for tests and dev wiring.
func (r *InMemoryReader) Seed(s *Shipment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.shipments[s.ID] = &cp
}

func (r *InMemoryReader) Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*Snapshot, error) {
	r.mu.RLock()
	s, ok := r.shipments[shipmentID]
	r.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	docs, err := r.documents.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID.String() < docs[j].ID.String()
	})

	cp := *s
	return &Snapshot{
		Shipment:  &cp,
		Documents: docs,
		TakenAt:   requestcontext.Now(ctx),
	}, nil
}
