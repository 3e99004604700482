package org

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/sentinel"
	"exportgate/pkg/requestcontext"
)

// Service orchestrates the organization lifecycle and exposes the active
// gate enforced before compliance operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new active organization. Admin only.
func (s *Service) Create(ctx context.Context, name, country string) (*Organization, error) {
	if !requestcontext.ActorRole(ctx).Satisfies(id.RoleAdmin) {
		return nil, domainerr.New(domainerr.CodeForbidden, "organization management requires admin role")
	}

	o, err := New(id.OrganizationID(uuid.New()), strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(country)), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIfNameAvailable(ctx, o); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domainerr.New(domainerr.CodeConflict, "organization name must be unique")
		}
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "organization creation failed")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "organization created", "organization_id", o.ID, "name", o.Name)
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, orgID id.OrganizationID) (*Organization, error) {
	o, err := s.store.FindByID(ctx, orgID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return o, nil
}

// Suspend transitions an organization to suspended. Evaluations and pack
// generation for its shipments fail immediately afterwards.
func (s *Service) Suspend(ctx context.Context, orgID id.OrganizationID) (*Organization, error) {
	return s.transition(ctx, orgID, (*Organization).CanSuspend, (*Organization).ApplySuspension, "organization suspended")
}

// Reinstate transitions a suspended organization back to active.
func (s *Service) Reinstate(ctx context.Context, orgID id.OrganizationID) (*Organization, error) {
	return s.transition(ctx, orgID, (*Organization).CanReinstate, (*Organization).ApplyReinstatement, "organization reinstated")
}

// RequireActive fails with FORBIDDEN when the organization is suspended. It
// is the single enforcement point for the suspension boundary.
func (s *Service) RequireActive(ctx context.Context, orgID id.OrganizationID) error {
	o, err := s.store.FindByID(ctx, orgID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !o.IsActive() {
		return domainerr.New(domainerr.CodeForbidden, "organization is suspended")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, orgID id.OrganizationID, validate func(*Organization) error, apply func(*Organization, time.Time), msg string) (*Organization, error) {
	if !requestcontext.ActorRole(ctx).Satisfies(id.RoleAdmin) {
		return nil, domainerr.New(domainerr.CodeForbidden, "organization management requires admin role")
	}

	now := requestcontext.Now(ctx)
	o, err := s.store.Execute(ctx, orgID, validate, func(o *Organization) {
		apply(o, now)
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, "organization_id", o.ID)
	}
	return o, nil
}

func wrapStoreErr(err error) error {
	var de *domainerr.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return domainerr.New(domainerr.CodeNotFound, "organization not found")
	case errors.As(err, &de):
		return err
	default:
		return domainerr.Wrap(err, domainerr.CodeInternal, "organization store failure")
	}
}
