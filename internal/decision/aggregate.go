package decision

import (
	"time"

	"exportgate/internal/rules"
	id "exportgate/pkg/domain"
)

// Decide combines rule results into a report. Policy, in order:
//
//  1. A still-valid override (same catalog version as the results) implies
//     APPROVE. The summary and results keep reporting the underlying rule
//     state; failing results are flagged overridden, never removed.
//  2. Any failed ERROR result: REJECT.
//  3. Any failed WARNING result: HOLD.
//  4. Otherwise APPROVE.
//
// INFO failures appear in the summary's failed count for visibility but
// never move the decision.
func Decide(results []rules.Result, override *Override, catalogVersion string, now time.Time) Report {
	summary := summarize(results)

	report := Report{
		Summary:        summary,
		Results:        results,
		CatalogVersion: catalogVersion,
		GeneratedAt:    now,
	}

	if override != nil && override.CatalogVersion == catalogVersion {
		report.Decision = id.DecisionApprove
		report.Override = override
		report.Results = flagOverridden(results)
		return report
	}

	switch {
	case hasFailedSeverity(results, id.SeverityError):
		report.Decision = id.DecisionReject
	case hasFailedSeverity(results, id.SeverityWarning):
		report.Decision = id.DecisionHold
	default:
		report.Decision = id.DecisionApprove
	}
	return report
}

func summarize(results []rules.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		if r.Severity == id.SeverityWarning {
			s.Warnings++
		}
	}
	return s
}

func hasFailedSeverity(results []rules.Result, severity id.Severity) bool {
	for _, r := range results {
		if !r.Passed && r.Severity == severity {
			return true
		}
	}
	return false
}

// flagOverridden marks failing decision-relevant results as overridden on a
// copy, leaving the input untouched.
func flagOverridden(results []rules.Result) []rules.Result {
	out := make([]rules.Result, len(results))
	copy(out, results)
	for i := range out {
		if !out[i].Passed && out[i].Severity != id.SeverityInfo {
			out[i].Overridden = true
		}
	}
	return out
}
