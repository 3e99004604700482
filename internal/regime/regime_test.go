package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "exportgate/pkg/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		regime   string
		extended bool
	}{
		{"no code falls back to standard", "", RegimeStandard, false},
		{"unknown chapter falls back to standard", "620342", RegimeStandard, false},
		{"vegetables are agricultural", "070200", RegimeAgricultural, false},
		{"fruit is agricultural", "080810", RegimeAgricultural, false},
		{"inorganic chemicals are dual use", "280110", RegimeDualUse, true},
		{"organic chemicals are dual use", "293399", RegimeDualUse, true},
		{"general machinery is standard", "840999", RegimeStandard, false},
		{"computing hardware beats the machinery chapter", "847130", RegimeDualUse, true},
		{"personal effects are excluded", "980400", RegimeExcluded, false},
		{"returned goods are excluded", "980510", RegimeExcluded, false},
		{"surrounding whitespace is ignored", " 070200 ", RegimeAgricultural, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Resolve(tt.code)
			assert.Equal(t, tt.regime, desc.Name)
			assert.Equal(t, tt.extended, desc.Extended)
		})
	}
}

func TestResolveRequiredDocuments(t *testing.T) {
	agricultural := Resolve("070200")
	assert.True(t, agricultural.Requires(id.DocTypePhytosanitaryCert))
	assert.True(t, agricultural.Requires(id.DocTypeCertificateOfOrigin))
	assert.False(t, agricultural.Requires(id.DocTypeExportLicense))

	excluded := Resolve("980400")
	require.Equal(t, []id.DocumentType{id.DocTypePackingList}, excluded.RequiredDocTypes)
}

// The exclusion direction is asymmetric: an extended regime carries the
// extended fields, every other regime must carry none, no matter what the
// table or callers attempt.
func TestExtendedFieldExclusion(t *testing.T) {
	dualUse := Resolve("847130")
	require.True(t, dualUse.Extended)
	assert.ElementsMatch(t, ExtendedRegimeFields(), dualUse.ExtendedFields)
	assert.True(t, dualUse.AllowsField("end_user_statement"))

	for _, code := range []string{"", "070200", "840999", "980400"} {
		desc := Resolve(code)
		assert.Empty(t, desc.ExtendedFields, "regime for %q must not carry extended fields", code)
		for _, field := range ExtendedRegimeFields() {
			assert.False(t, desc.AllowsField(field),
				"regime for %q must forbid extended field %s", code, field)
		}
		assert.True(t, desc.AllowsField("issuer"))
	}
}

func TestSanitizeStripsExtendedFields(t *testing.T) {
	tampered := Descriptor{
		Name:           RegimeStandard,
		ExtendedFields: []string{"end_user_statement"},
	}
	clean := Sanitize(tampered)
	assert.Empty(t, clean.ExtendedFields)

	extended := Descriptor{
		Name:           RegimeDualUse,
		Extended:       true,
		ExtendedFields: []string{"end_user_statement"},
	}
	assert.Equal(t, extended, Sanitize(extended))
}

func TestResolveReturnsACopy(t *testing.T) {
	first := Resolve("070200")
	first.RequiredDocTypes[0] = id.DocTypeInsuranceCert

	second := Resolve("070200")
	assert.Equal(t, id.DocTypeBillOfLading, second.RequiredDocTypes[0])
}

func TestValidateTable(t *testing.T) {
	require.NoError(t, ValidateTable())
}
