// Package domain holds shared value types for the compliance core: typed
// identifiers and the enumerations used across features.
//
// IDs are distinct named UUID types so the compiler rejects cross-entity
// mixups. Construct them via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	"exportgate/pkg/domainerr"
)

type (
	// ShipmentID identifies an export shipment.
	ShipmentID uuid.UUID
	// DocumentID identifies a regulatory document attached to a shipment.
	DocumentID uuid.UUID
	// OrganizationID identifies the owning organization (tenant).
	OrganizationID uuid.UUID
	// ActorID identifies the human or system actor performing an operation.
	// The core never derives a role from it; roles arrive already resolved.
	ActorID uuid.UUID
	// TransitionID identifies an immutable document transition record.
	TransitionID uuid.UUID
	// ReportID identifies a persisted compliance report.
	ReportID uuid.UUID
)

func parseUUID(s string, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, domainerr.Newf(domainerr.CodeValidation, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domainerr.Newf(domainerr.CodeValidation, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, domainerr.Newf(domainerr.CodeValidation, "%s cannot be the nil UUID", what)
	}
	return u, nil
}

func ParseShipmentID(s string) (ShipmentID, error) {
	u, err := parseUUID(s, "shipment id")
	return ShipmentID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization id")
	return OrganizationID(u), err
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	return ActorID(u), err
}

func ParseTransitionID(s string) (TransitionID, error) {
	u, err := parseUUID(s, "transition id")
	return TransitionID(u), err
}

func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report id")
	return ReportID(u), err
}

func (id ShipmentID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string        { return uuid.UUID(id).String() }
func (id TransitionID) String() string   { return uuid.UUID(id).String() }
func (id ReportID) String() string       { return uuid.UUID(id).String() }

func (id ShipmentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id OrganizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id TransitionID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ReportID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func (id *ShipmentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ShipmentID(u)
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DocumentID(u)
	return nil
}

func (id *OrganizationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = OrganizationID(u)
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ActorID(u)
	return nil
}

func (id *TransitionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = TransitionID(u)
	return nil
}

func (id *ReportID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ReportID(u)
	return nil
}

func (id ShipmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewTransitionID allocates a fresh transition identifier.
func NewTransitionID() TransitionID { return TransitionID(uuid.New()) }

// NewReportID allocates a fresh report identifier.
func NewReportID() ReportID { return ReportID(uuid.New()) }
