// Package org manages exporter organizations. A shipment belongs to exactly
// one organization, and compliance operations are refused while the owning
// organization is suspended.
package org

import (
	"time"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
)

// Status is the organization lifecycle state. Transitions are
// active ↔ suspended only.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Organization is the aggregate root for an exporter.
//
// Suspension is an immediate enforcement boundary: evaluations and pack
// generation for the organization's shipments fail while suspended, without
// cascading status changes onto shipments or documents. The gate lives at the
// service layer (RequireActive), keeping the organization record the single
// source of truth.
type Organization struct {
	ID        id.OrganizationID `json:"id"`
	Name      string            `json:"name"`
	Country   string            `json:"country"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (o *Organization) IsActive() bool {
	return o.Status == StatusActive
}

func (o *Organization) CanSuspend() error {
	if o.Status == StatusSuspended {
		return domainerr.New(domainerr.CodeConflict, "organization is already suspended")
	}
	return nil
}

func (o *Organization) ApplySuspension(now time.Time) {
	o.Status = StatusSuspended
	o.UpdatedAt = now
}

func (o *Organization) CanReinstate() error {
	if o.Status == StatusActive {
		return domainerr.New(domainerr.CodeConflict, "organization is already active")
	}
	return nil
}

func (o *Organization) ApplyReinstatement(now time.Time) {
	o.Status = StatusActive
	o.UpdatedAt = now
}

const maxNameLen = 128

// New validates and constructs an active organization.
func New(orgID id.OrganizationID, name, country string, now time.Time) (*Organization, error) {
	if name == "" {
		return nil, domainerr.New(domainerr.CodeValidation, "organization name cannot be empty")
	}
	if len(name) > maxNameLen {
		return nil, domainerr.New(domainerr.CodeValidation, "organization name must be 128 characters or less")
	}
	if len(country) != 2 {
		return nil, domainerr.New(domainerr.CodeValidation, "organization country must be a two-letter code")
	}
	return &Organization{
		ID:        orgID,
		Name:      name,
		Country:   country,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
