package rules

import (
	"fmt"
	"sort"
	"time"

	"exportgate/internal/regime"
	"exportgate/internal/shipment"
)

// Evaluate runs the active rules against a snapshot and returns results in
// stable rule-id order, so two reports over identical snapshots are
// structurally diffable. Rules run independently; evaluation is safe to call
// from any number of goroutines because nothing here is shared or mutated.
func Evaluate(snapshot *shipment.Snapshot, active []Rule, now time.Time) []Result {
	ctx := &Context{
		Snapshot: snapshot,
		Regime:   regime.Resolve(snapshot.PrimaryClassification()),
	}

	results := make([]Result, 0, len(active))
	for _, rule := range active {
		outcome := runChecked(rule, ctx)
		results = append(results, Result{
			RuleID:       rule.ID,
			Name:         rule.Name,
			Passed:       outcome.Passed,
			Severity:     rule.Severity,
			Message:      outcome.Message,
			FieldPath:    outcome.FieldPath,
			DocumentType: rule.DocumentType,
			EvaluatedAt:  now,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RuleID < results[j].RuleID
	})
	return results
}

// runChecked converts a panicking rule into a failed result. Rules are
// written to never panic on missing data; this keeps a misbehaving rule from
// taking the whole evaluation down with it.
func runChecked(rule Rule, ctx *Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = fail(fmt.Sprintf("rule %s panicked: %v", rule.ID, r))
		}
	}()
	return rule.Check(ctx)
}
