package org

import (
	"context"
	"strings"
	"sync"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

// InMemoryStore holds organizations behind a mutex. Name uniqueness is
// case-insensitive, matching the Postgres unique index on lower(name).
type InMemoryStore struct {
	mu   sync.RWMutex
	orgs map[id.OrganizationID]*Organization
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orgs: make(map[id.OrganizationID]*Organization)}
}

// Seed inserts organizations directly, bypassing uniqueness checks. Test and
// dev-mode setup only.
func (s *InMemoryStore) Seed(orgs ...*Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orgs {
		cp := *o
		s.orgs[o.ID] = &cp
	}
}

func (s *InMemoryStore) CreateIfNameAvailable(_ context.Context, o *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if strings.EqualFold(existing.Name, o.Name) {
			return sentinel.ErrConflict
		}
	}
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, orgID id.OrganizationID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemoryStore) Execute(_ context.Context, orgID id.OrganizationID, validate func(*Organization) error, mutate func(*Organization)) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(o); err != nil {
		return nil, err
	}
	mutate(o)
	cp := *o
	return &cp, nil
}
