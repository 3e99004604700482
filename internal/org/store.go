package org

import (
	"context"

	id "exportgate/pkg/domain"
)

// Store persists organizations.
//
// Execute runs validate then mutate while holding the record lock (mutex in
// memory, FOR UPDATE in Postgres), so status transitions are atomic
// check-then-set operations.
type Store interface {
	CreateIfNameAvailable(ctx context.Context, o *Organization) error
	FindByID(ctx context.Context, orgID id.OrganizationID) (*Organization, error)
	Execute(ctx context.Context, orgID id.OrganizationID, validate func(*Organization) error, mutate func(*Organization)) (*Organization, error)
}
