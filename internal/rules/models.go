// Package rules holds the compliance rule catalog and the evaluator.
//
// Rules are pure functions over a shipment snapshot: no I/O, no side effects,
// no dependency on evaluation order. Missing or malformed business data never
// raises; it produces a failed result with an explicit message, because a
// missing field is a compliance fact, not a programming fault.
package rules

import (
	"time"

	"exportgate/internal/regime"
	"exportgate/internal/shipment"
	id "exportgate/pkg/domain"
)

// Result is the outcome of evaluating one rule against one snapshot. Results
// are produced fresh on every evaluation and never mutated afterwards, except
// that the decision layer may flag them as overridden.
type Result struct {
	RuleID       string          `json:"rule_id"`
	Name         string          `json:"name"`
	Passed       bool            `json:"passed"`
	Severity     id.Severity     `json:"severity"`
	Message      string          `json:"message,omitempty"`
	FieldPath    string          `json:"field_path,omitempty"`
	DocumentType id.DocumentType `json:"document_type,omitempty"`
	EvaluatedAt  time.Time       `json:"evaluated_at"`
	Overridden   bool            `json:"overridden,omitempty"`
}

// Context is everything a rule may inspect.
type Context struct {
	Snapshot *shipment.Snapshot
	Regime   regime.Descriptor
}

// Outcome is what a rule's check function reports; the evaluator merges it
// with the rule's static attributes into a Result.
type Outcome struct {
	Passed    bool
	Message   string
	FieldPath string
}

func pass() Outcome {
	return Outcome{Passed: true}
}

func fail(message string) Outcome {
	return Outcome{Passed: false, Message: message}
}

func failField(message, fieldPath string) Outcome {
	return Outcome{Passed: false, Message: message, FieldPath: fieldPath}
}

// Rule is one entry of the static catalog.
type Rule struct {
	ID           string
	Name         string
	Severity     id.Severity
	DocumentType id.DocumentType // zero for shipment-wide rules
	Check        func(*Context) Outcome
}
