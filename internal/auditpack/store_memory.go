package auditpack

import (
	"context"
	"sync"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

// InMemoryStore keeps the current pack per shipment. The GENERATING gate is
// checked and set under one lock, which makes it a correct in-process
// single-flight barrier.
type InMemoryStore struct {
	mu    sync.Mutex
	packs map[id.ShipmentID]*Pack
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{packs: make(map[id.ShipmentID]*Pack)}
}

func (s *InMemoryStore) Get(_ context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pack, ok := s.packs[shipmentID]
	if !ok {
		return &Pack{ShipmentID: shipmentID, Status: StatusNone}, nil
	}
	cp := *pack
	return &cp, nil
}

func (s *InMemoryStore) BeginGeneration(_ context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.packs[shipmentID]
	if ok && current.Status == StatusGenerating {
		return nil, sentinel.ErrInvalidState
	}

	var prior *Pack
	if ok {
		cp := *current
		prior = &cp
	}
	s.packs[shipmentID] = &Pack{ShipmentID: shipmentID, Status: StatusGenerating}
	return prior, nil
}

func (s *InMemoryStore) Complete(_ context.Context, pack *Pack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.packs[pack.ShipmentID]
	if !ok || current.Status != StatusGenerating {
		return sentinel.ErrInvalidState
	}
	cp := *pack
	cp.Status = StatusReady
	s.packs[pack.ShipmentID] = &cp
	return nil
}

func (s *InMemoryStore) Restore(_ context.Context, shipmentID id.ShipmentID, prior *Pack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior == nil {
		delete(s.packs, shipmentID)
		return nil
	}
	cp := *prior
	s.packs[shipmentID] = &cp
	return nil
}

func (s *InMemoryStore) MarkOutdated(_ context.Context, shipmentID id.ShipmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.packs[shipmentID]
	if !ok || current.Status != StatusReady {
		return nil
	}
	current.Status = StatusOutdated
	return nil
}
