package decision

import (
	"context"
	"sync"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

// InMemoryStore keeps report history per shipment, enforcing the version
// discipline under one lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[id.ShipmentID][]Report
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[id.ShipmentID][]Report)}
}

func (s *InMemoryStore) Save(_ context.Context, report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.reports[report.ShipmentID]
	if report.Version != len(history)+1 {
		return sentinel.ErrConflict
	}
	s.reports[report.ShipmentID] = append(history, report)
	return nil
}

func (s *InMemoryStore) LatestByShipment(_ context.Context, shipmentID id.ShipmentID) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.reports[shipmentID]
	if len(history) == 0 {
		return nil, sentinel.ErrNotFound
	}
	cp := history[len(history)-1]
	return &cp, nil
}

func (s *InMemoryStore) ListByShipment(_ context.Context, shipmentID id.ShipmentID) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Report{}, s.reports[shipmentID]...), nil
}
