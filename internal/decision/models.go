// Package decision aggregates rule results into the shipment-level
// compliance verdict and manages overrides. Reports are append-only: a new
// evaluation or override produces a new report version, never an edit to a
// stored one.
package decision

import (
	"time"

	"exportgate/internal/rules"
	id "exportgate/pkg/domain"
)

// Override is a manual supersession of a non-approving decision. It layers a
// new decision atop immutable rule results; the underlying outcomes stay in
// the report for transparency.
type Override struct {
	Reason  string     `json:"reason"`
	ActorID id.ActorID `json:"actor_id"`
	// CatalogVersion records the rule catalog the overridden results were
	// produced with. A newer catalog supersedes the override.
	CatalogVersion string    `json:"catalog_version"`
	AppliedAt      time.Time `json:"applied_at"`
}

// minOverrideReasonLen is the minimum length of a trimmed override reason.
const minOverrideReasonLen = 5

// Summary carries the report's rule counts.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
}

// Report is the shipment's compliance report of record. The latest version
// is authoritative; prior versions are retained for audit.
type Report struct {
	ID             id.ReportID    `json:"id"`
	ShipmentID     id.ShipmentID  `json:"shipment_id"`
	Decision       id.Decision    `json:"decision"`
	Summary        Summary        `json:"summary"`
	Results        []rules.Result `json:"results"`
	Override       *Override      `json:"override,omitempty"`
	CatalogVersion string         `json:"catalog_version"`
	// Version increments per shipment; persistence rejects a report whose
	// version is not exactly the latest plus one.
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}
