package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"exportgate/internal/document"
	"exportgate/internal/regime"
	id "exportgate/pkg/domain"
)

// Version identifies the rule catalog revision. Reports record the version
// they were produced with; an override is superseded when the catalog moves.
const Version = "2026.1"

// weightTolerance is the allowed relative disagreement of declared weights
// across documents.
const weightTolerance = 0.05

// NewCatalog builds the full static rule catalog. It returns an error when an
// expression rule fails to compile, so misconfiguration surfaces at startup
// rather than during evaluation.
func NewCatalog() ([]Rule, error) {
	currencyRule, err := NewExpressionRule(
		"CEL-001",
		"invoice currency is supported",
		id.SeverityWarning,
		id.DocTypeCommercialInvoice,
		`doc.currency in ["USD", "EUR", "GBP", "JPY", "CHF"]`,
	)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	catalog := []Rule{
		requiredFields("STR-001", "bill of lading carries mandatory fields",
			id.DocTypeBillOfLading, []string{"issuer", "container_number", "gross_weight_kg"}),
		requiredFields("STR-002", "commercial invoice carries mandatory fields",
			id.DocTypeCommercialInvoice, []string{"issuer", "invoice_number", "currency"}),
		fieldPattern("STR-003", "certificate of origin authority code format",
			id.DocTypeCertificateOfOrigin, "authority_code", `^[A-Z]{2}-[0-9]{4}$`),
		requiredFields("STR-004", "phytosanitary certificate carries inspection date",
			id.DocTypePhytosanitaryCert, []string{"issuer", "inspection_date"}),
		fieldPattern("STR-005", "export license number format",
			id.DocTypeExportLicense, "license_number", `^EXP-[0-9]{6}$`),
		weightAgreement(),
		containerConsistency(),
		classificationConsistency(),
		requiredDocuments(),
		forbiddenExtendedFields(),
		extendedFieldsPresent(),
		insuranceRecommended(),
		currencyRule,
	}

	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })
	return catalog, nil
}

// ActiveFor selects the rules that run for a regime: shipment-wide rules
// always, document-scoped rules only for document types the regime requires,
// and the extended-presence rule only under the extended regime.
func ActiveFor(desc regime.Descriptor, catalog []Rule) []Rule {
	var active []Rule
	for _, rule := range catalog {
		if rule.ID == "REG-003" && !desc.Extended {
			continue
		}
		if rule.DocumentType != "" && !desc.Requires(rule.DocumentType) {
			continue
		}
		active = append(active, rule)
	}
	return active
}

func docsOfType(ctx *Context, t id.DocumentType) []*document.Document {
	var out []*document.Document
	for _, doc := range ctx.Snapshot.Documents {
		if doc.Type == t {
			out = append(out, doc)
		}
	}
	return out
}

// requiredFields passes vacuously when no document of the type exists;
// REG-001 reports missing documents.
func requiredFields(ruleID, name string, t id.DocumentType, fields []string) Rule {
	return Rule{
		ID:           ruleID,
		Name:         name,
		Severity:     id.SeverityError,
		DocumentType: t,
		Check: func(ctx *Context) Outcome {
			for _, doc := range docsOfType(ctx, t) {
				for _, field := range fields {
					if _, ok := doc.Fields[field]; !ok {
						return failField(
							fmt.Sprintf("document %s: missing field %s", doc.ID, field), field)
					}
				}
			}
			return pass()
		},
	}
}

func fieldPattern(ruleID, name string, t id.DocumentType, field, pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		ID:           ruleID,
		Name:         name,
		Severity:     id.SeverityError,
		DocumentType: t,
		Check: func(ctx *Context) Outcome {
			for _, doc := range docsOfType(ctx, t) {
				value, ok := doc.Field(field)
				if !ok {
					return failField(
						fmt.Sprintf("document %s: missing field %s", doc.ID, field), field)
				}
				if !re.MatchString(value) {
					return failField(
						fmt.Sprintf("document %s: field %s value %q does not match %s",
							doc.ID, field, value, pattern), field)
				}
			}
			return pass()
		},
	}
}

// weightAgreement checks that declared gross weights agree within tolerance
// across every document that declares one.
func weightAgreement() Rule {
	return Rule{
		ID:       "XDC-001",
		Name:     "declared weights agree across documents",
		Severity: id.SeverityWarning,
		Check: func(ctx *Context) Outcome {
			var minW, maxW float64
			count := 0
			for _, doc := range ctx.Snapshot.Documents {
				if _, declared := doc.Fields["gross_weight_kg"]; !declared {
					continue
				}
				w, ok := doc.NumericField("gross_weight_kg")
				if !ok {
					return failField(fmt.Sprintf(
						"document %s: field gross_weight_kg is not numeric", doc.ID),
						"gross_weight_kg")
				}
				if count == 0 || w < minW {
					minW = w
				}
				if count == 0 || w > maxW {
					maxW = w
				}
				count++
			}
			if count < 2 {
				return pass()
			}
			if maxW == 0 {
				return pass()
			}
			if (maxW-minW)/maxW > weightTolerance {
				return failField(fmt.Sprintf(
					"declared weights disagree beyond %.0f%%: min %.2f kg, max %.2f kg",
					weightTolerance*100, minW, maxW), "gross_weight_kg")
			}
			return pass()
		},
	}
}

func containerConsistency() Rule {
	return Rule{
		ID:       "XDC-002",
		Name:     "container number is identical across documents",
		Severity: id.SeverityError,
		Check: func(ctx *Context) Outcome {
			seen := ""
			for _, doc := range ctx.Snapshot.Documents {
				value, ok := doc.Field("container_number")
				if !ok {
					continue
				}
				if seen == "" {
					seen = value
					continue
				}
				if value != seen {
					return failField(fmt.Sprintf(
						"document %s declares container %q, others declare %q",
						doc.ID, value, seen), "container_number")
				}
			}
			return pass()
		},
	}
}

func classificationConsistency() Rule {
	return Rule{
		ID:       "XDC-003",
		Name:     "classification code is consistent across documents",
		Severity: id.SeverityError,
		Check: func(ctx *Context) Outcome {
			expected := ctx.Snapshot.PrimaryClassification()
			if expected == "" {
				return fail("shipment has no classification code")
			}
			for _, doc := range ctx.Snapshot.Documents {
				value, ok := doc.Field("classification_code")
				if !ok {
					continue
				}
				if value != expected {
					return failField(fmt.Sprintf(
						"document %s declares classification %q, shipment declares %q",
						doc.ID, value, expected), "classification_code")
				}
			}
			return pass()
		},
	}
}

func requiredDocuments() Rule {
	return Rule{
		ID:       "REG-001",
		Name:     "required documents present for regime",
		Severity: id.SeverityError,
		Check: func(ctx *Context) Outcome {
			present := make(map[id.DocumentType]bool, len(ctx.Snapshot.Documents))
			for _, doc := range ctx.Snapshot.Documents {
				present[doc.Type] = true
			}
			var missing []string
			for _, t := range ctx.Regime.RequiredDocTypes {
				if !present[t] {
					missing = append(missing, string(t))
				}
			}
			if len(missing) > 0 {
				return fail(fmt.Sprintf("regime %s requires missing documents: %s",
					ctx.Regime.Name, strings.Join(missing, ", ")))
			}
			return pass()
		},
	}
}

// forbiddenExtendedFields enforces the exclusion prohibition at evaluation
// time: outside the extended regime, no document may carry an extended-regime
// field.
func forbiddenExtendedFields() Rule {
	return Rule{
		ID:       "REG-002",
		Name:     "extended-regime fields absent outside extended regime",
		Severity: id.SeverityError,
		Check: func(ctx *Context) Outcome {
			if ctx.Regime.Extended {
				return pass()
			}
			for _, doc := range ctx.Snapshot.Documents {
				for _, field := range regime.ExtendedRegimeFields() {
					if _, ok := doc.Fields[field]; ok {
						return failField(fmt.Sprintf(
							"document %s carries forbidden extended-regime field %s under regime %s",
							doc.ID, field, ctx.Regime.Name), field)
					}
				}
			}
			return pass()
		},
	}
}

func extendedFieldsPresent() Rule {
	return Rule{
		ID:       "REG-003",
		Name:     "extended due-diligence fields present",
		Severity: id.SeverityError,
		Check: func(ctx *Context) Outcome {
			if !ctx.Regime.Extended {
				return pass()
			}
			for _, field := range ctx.Regime.ExtendedFields {
				found := false
				for _, doc := range ctx.Snapshot.Documents {
					if _, ok := doc.Fields[field]; ok {
						found = true
						break
					}
				}
				if !found {
					return failField(fmt.Sprintf("missing field %s required by the extended regime", field), field)
				}
			}
			return pass()
		},
	}
}

func insuranceRecommended() Rule {
	return Rule{
		ID:       "INF-001",
		Name:     "insurance certificate attached",
		Severity: id.SeverityInfo,
		Check: func(ctx *Context) Outcome {
			for _, doc := range ctx.Snapshot.Documents {
				if doc.Type == id.DocTypeInsuranceCert {
					return pass()
				}
			}
			return fail("no insurance certificate attached")
		},
	}
}
