package regime

import id "exportgate/pkg/domain"

// Regime names.
const (
	RegimeStandard     = "standard"
	RegimeAgricultural = "agricultural"
	RegimeDualUse      = "dual_use"
	RegimeExcluded     = "excluded"
)

// defaultRegime applies when no prefix matches.
var defaultRegime = Descriptor{
	Name: RegimeStandard,
	RequiredDocTypes: []id.DocumentType{
		id.DocTypeBillOfLading,
		id.DocTypeCommercialInvoice,
		id.DocTypePackingList,
	},
}

// prefixTable maps classification code prefixes (harmonized system chapters
// and headings) to regimes. Longest prefix wins, so 8471 beats 84.
var prefixTable = map[string]Descriptor{
	// Agricultural chapters require phytosanitary certification.
	"07": {
		Name: RegimeAgricultural,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
			id.DocTypePhytosanitaryCert,
			id.DocTypeCertificateOfOrigin,
		},
	},
	"08": {
		Name: RegimeAgricultural,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
			id.DocTypePhytosanitaryCert,
			id.DocTypeCertificateOfOrigin,
		},
	},
	// Chemical chapters fall under extended due diligence.
	"28": {
		Name:     RegimeDualUse,
		Extended: true,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
			id.DocTypeExportLicense,
			id.DocTypeDangerousGoodsDecl,
		},
		ExtendedFields: extendedRegimeFields,
	},
	"29": {
		Name:     RegimeDualUse,
		Extended: true,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
			id.DocTypeExportLicense,
			id.DocTypeDangerousGoodsDecl,
		},
		ExtendedFields: extendedRegimeFields,
	},
	// General machinery is standard, but computing hardware under 8471 is
	// dual-use controlled; the longer prefix takes precedence.
	"84": {
		Name: RegimeStandard,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
		},
	},
	"8471": {
		Name:     RegimeDualUse,
		Extended: true,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypeBillOfLading,
			id.DocTypeCommercialInvoice,
			id.DocTypePackingList,
			id.DocTypeExportLicense,
		},
		ExtendedFields: extendedRegimeFields,
	},
	// Personal effects and returned goods are excluded from the compliance
	// regime entirely: minimal documents, extended fields prohibited.
	"9804": {
		Name: RegimeExcluded,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypePackingList,
		},
	},
	"9805": {
		Name: RegimeExcluded,
		RequiredDocTypes: []id.DocumentType{
			id.DocTypePackingList,
		},
	},
}
