// Package auditpack freezes a verifiable snapshot of a shipment's documents
// and its compliance decision into a signed, timestamped export artifact.
package auditpack

import (
	"time"

	"exportgate/internal/decision"
	id "exportgate/pkg/domain"
)

// Status is the pack lifecycle state.
//
// NONE → GENERATING → READY; READY → OUTDATED when any input document or the
// active decision changes after generation; OUTDATED → GENERATING → READY on
// explicit regeneration. A pack is never silently overwritten while
// GENERATING.
type Status string

const (
	StatusNone       Status = "NONE"
	StatusGenerating Status = "GENERATING"
	StatusReady      Status = "READY"
	StatusOutdated   Status = "OUTDATED"
)

// Item describes one entry of the pack's itemized contents.
type Item struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	DocumentType id.DocumentType `json:"document_type,omitempty"`
}

// Pack is the single current audit pack record per shipment.
type Pack struct {
	ShipmentID    id.ShipmentID    `json:"shipment_id"`
	Status        Status           `json:"status"`
	GeneratedAt   time.Time        `json:"generated_at"`
	DocumentCount int              `json:"document_count"`
	Items         []Item           `json:"items"`
	Decision      id.Decision      `json:"decision"`
	Summary       decision.Summary `json:"summary"`
	// Fingerprint is the content digest the pack was generated against; it
	// detects staleness against the current shipment state.
	Fingerprint    string `json:"fingerprint"`
	Signature      []byte `json:"signature,omitempty"`
	TimestampToken string `json:"timestamp_token,omitempty"`
}

// IsOutdated reports whether the pack no longer reflects the shipment. READY
// and OUTDATED packs carry a fingerprint to compare; NONE and GENERATING do
// not. OUTDATED packs keep comparing so repeated status checks stay stable
// rather than flapping back when the shipment drifts again.
func IsOutdated(pack *Pack, currentFingerprint string) bool {
	if pack == nil || pack.Status != StatusReady && pack.Status != StatusOutdated {
		return false
	}
	return pack.Fingerprint != currentFingerprint
}
