package memory

import (
	"context"
	"sync"

	id "exportgate/pkg/domain"
	audit "exportgate/pkg/platform/audit"
)

// InMemoryStore keeps audit events per shipment. It favors clarity over
// performance and is the default store in tests and dev mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ShipmentID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ShipmentID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ShipmentID] = append(s.events[event.ShipmentID], event)
	return nil
}

func (s *InMemoryStore) ListByShipment(_ context.Context, shipmentID id.ShipmentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[shipmentID]...), nil
}

// ListAll returns every stored event across shipments, mainly for tests.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.ShipmentID][]audit.Event)
}
