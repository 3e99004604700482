package document

import (
	"context"
	"sync"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

// InMemoryStore keeps documents and transitions in process memory. It favors
// clarity over performance and backs unit tests and dev mode.
type InMemoryStore struct {
	mu          sync.RWMutex
	documents   map[id.DocumentID]*Document
	transitions map[id.DocumentID][]Transition
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		documents:   make(map[id.DocumentID]*Document),
		transitions: make(map[id.DocumentID][]Transition),
	}
}

// Seed inserts a document directly, for tests and dev wiring.
func (s *InMemoryStore) Seed(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.documents[doc.ID] = &cp
}

// Clear drops every document and transition, for test isolation.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[id.DocumentID]*Document)
	s.transitions = make(map[id.DocumentID][]Transition)
}

func (s *InMemoryStore) FindByID(_ context.Context, documentID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemoryStore) ListByShipment(_ context.Context, shipmentID id.ShipmentID) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []*Document
	for _, doc := range s.documents {
		if doc.ShipmentID == shipmentID {
			cp := *doc
			docs = append(docs, &cp)
		}
	}
	return docs, nil
}

func (s *InMemoryStore) AppendTransition(_ context.Context, tr Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[tr.DocumentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Expected-state check and append happen under one lock, which is the
	// in-memory equivalent of the conditional UPDATE in the Postgres store.
	if doc.State != tr.From {
		return sentinel.ErrConflict
	}
	doc.State = tr.To
	doc.UpdatedAt = tr.Timestamp
	s.transitions[tr.DocumentID] = append(s.transitions[tr.DocumentID], tr)
	return nil
}

func (s *InMemoryStore) ListTransitions(_ context.Context, documentID id.DocumentID) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transition{}, s.transitions[documentID]...), nil
}
