package org

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/testutil"
)

var orgNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store)
}

func (s *ServiceSuite) ctx(role id.Role) context.Context {
	return testutil.ContextWithActor(role, orgNow)
}

func (s *ServiceSuite) create(name, country string) *Organization {
	o, err := s.service.Create(s.ctx(id.RoleAdmin), name, country)
	s.Require().NoError(err)
	return o
}

func (s *ServiceSuite) TestCreate() {
	s.Run("admin creates an active organization", func() {
		s.SetupTest()
		o := s.create("Acme Exports", "de")
		s.Equal(StatusActive, o.Status)
		s.Equal("DE", o.Country, "country code is normalized to upper case")
		s.Equal(orgNow, o.CreatedAt)

		found, err := s.service.Get(context.Background(), o.ID)
		s.Require().NoError(err)
		s.Equal(o.Name, found.Name)
	})

	s.Run("non-admin is refused", func() {
		s.SetupTest()
		_, err := s.service.Create(s.ctx(id.RoleCompliance), "Acme Exports", "DE")
		s.True(domainerr.HasCode(err, domainerr.CodeForbidden))
	})

	s.Run("duplicate name conflicts case-insensitively", func() {
		s.SetupTest()
		s.create("Acme Exports", "DE")
		_, err := s.service.Create(s.ctx(id.RoleAdmin), "acme exports", "DE")
		s.True(domainerr.HasCode(err, domainerr.CodeConflict))
	})

	s.Run("validation", func() {
		for _, tt := range []struct{ name, country string }{
			{"", "DE"},
			{"  ", "DE"},
			{"Acme Exports", "DEU"},
			{"Acme Exports", ""},
		} {
			_, err := s.service.Create(s.ctx(id.RoleAdmin), tt.name, tt.country)
			s.True(domainerr.HasCode(err, domainerr.CodeValidation),
				"name=%q country=%q", tt.name, tt.country)
		}
	})
}

func (s *ServiceSuite) TestSuspendAndReinstate() {
	s.Run("suspend then reinstate", func() {
		s.SetupTest()
		o := s.create("Acme Exports", "DE")

		suspended, err := s.service.Suspend(s.ctx(id.RoleAdmin), o.ID)
		s.Require().NoError(err)
		s.Equal(StatusSuspended, suspended.Status)

		reinstated, err := s.service.Reinstate(s.ctx(id.RoleAdmin), o.ID)
		s.Require().NoError(err)
		s.Equal(StatusActive, reinstated.Status)
	})

	s.Run("suspending twice conflicts", func() {
		s.SetupTest()
		o := s.create("Acme Exports", "DE")
		_, err := s.service.Suspend(s.ctx(id.RoleAdmin), o.ID)
		s.Require().NoError(err)

		_, err = s.service.Suspend(s.ctx(id.RoleAdmin), o.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeConflict))
	})

	s.Run("reinstating an active organization conflicts", func() {
		s.SetupTest()
		o := s.create("Acme Exports", "DE")
		_, err := s.service.Reinstate(s.ctx(id.RoleAdmin), o.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeConflict))
	})

	s.Run("compliance role cannot manage organizations", func() {
		s.SetupTest()
		o := s.create("Acme Exports", "DE")
		_, err := s.service.Suspend(s.ctx(id.RoleCompliance), o.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeForbidden))
	})

	s.Run("unknown organization", func() {
		s.SetupTest()
		_, err := s.service.Suspend(s.ctx(id.RoleAdmin), id.OrganizationID(uuid.New()))
		s.True(domainerr.HasCode(err, domainerr.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRequireActive() {
	o := s.create("Acme Exports", "DE")

	s.NoError(s.service.RequireActive(context.Background(), o.ID))

	_, err := s.service.Suspend(s.ctx(id.RoleAdmin), o.ID)
	s.Require().NoError(err)

	err = s.service.RequireActive(context.Background(), o.ID)
	s.True(domainerr.HasCode(err, domainerr.CodeForbidden))

	err = s.service.RequireActive(context.Background(), id.OrganizationID(uuid.New()))
	s.True(domainerr.HasCode(err, domainerr.CodeNotFound))
}
