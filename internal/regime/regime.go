// Package regime maps a cargo classification code to the regulatory regime
// that applies: which document types are required and whether the extended
// due-diligence regime is in force.
//
// Resolution is a pure longest-prefix lookup against a fixed table. The
// exclusion direction is a hard prohibition, not just an absence of
// requirement: a descriptor for a non-extended regime must never carry
// extended-regime fields, even if upstream data attempts to attach them.
package regime

import (
	"fmt"
	"slices"
	"strings"

	id "exportgate/pkg/domain"
)

// Descriptor specifies the regulatory regime applicable to a cargo class.
type Descriptor struct {
	Name             string
	RequiredDocTypes []id.DocumentType
	// Extended marks the extended due-diligence regime (additional fields and
	// rules apply).
	Extended bool
	// ExtendedFields are the structured fields the extended regime requires.
	// Empty unless Extended is true; Sanitize enforces this.
	ExtendedFields []string
}

// extendedRegimeFields is the canonical field set of the extended
// due-diligence regime. Non-extended descriptors must never carry any of
// these.
var extendedRegimeFields = []string{
	"end_user_statement",
	"export_license_number",
	"dual_use_category",
}

// ExtendedRegimeFields returns the canonical extended field set.
func ExtendedRegimeFields() []string {
	return slices.Clone(extendedRegimeFields)
}

// Sanitize enforces the exclusion invariant on a descriptor: when the regime
// is not extended, every extended-regime field is actively stripped rather
// than merely left unrequired. Silently carrying them would turn a regulatory
// violation into a configuration choice.
func Sanitize(d Descriptor) Descriptor {
	if d.Extended {
		return d
	}
	d.ExtendedFields = nil
	return d
}

// AllowsField reports whether a structured field is admissible under the
// descriptor. Extended-regime fields are forbidden outside the extended
// regime.
func (d Descriptor) AllowsField(name string) bool {
	if d.Extended {
		return true
	}
	return !slices.Contains(extendedRegimeFields, name)
}

// Requires reports whether the regime requires the given document type.
func (d Descriptor) Requires(t id.DocumentType) bool {
	return slices.Contains(d.RequiredDocTypes, t)
}

// Resolve returns the regime descriptor for a classification code using
// longest-prefix matching. Codes with no matching prefix fall back to the
// standard regime. The returned descriptor is a sanitized copy; mutating it
// cannot corrupt the table.
func Resolve(classificationCode string) Descriptor {
	code := strings.TrimSpace(classificationCode)

	best := defaultRegime
	bestLen := -1
	for prefix, d := range prefixTable {
		if strings.HasPrefix(code, prefix) && len(prefix) > bestLen {
			best = d
			bestLen = len(prefix)
		}
	}

	out := best
	out.RequiredDocTypes = slices.Clone(best.RequiredDocTypes)
	out.ExtendedFields = slices.Clone(best.ExtendedFields)
	return Sanitize(out)
}

// ValidateTable is the standing structural check over the fixed table: no
// non-extended regime may list an extended-regime field. It runs in tests and
// at service start.
func ValidateTable() error {
	check := func(name string, d Descriptor) error {
		if d.Extended {
			return nil
		}
		for _, f := range d.ExtendedFields {
			return fmt.Errorf("regime %s is not extended but lists extended field %s", name, f)
		}
		return nil
	}
	if err := check(defaultRegime.Name, defaultRegime); err != nil {
		return err
	}
	for prefix, d := range prefixTable {
		if err := check(d.Name+" (prefix "+prefix+")", d); err != nil {
			return err
		}
	}
	return nil
}
