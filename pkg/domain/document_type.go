package domain

import "exportgate/pkg/domainerr"

// DocumentType classifies a regulatory document attached to a shipment.
// Invariant: the value must be one of the supported types.
type DocumentType string

const (
	DocTypeBillOfLading        DocumentType = "bill_of_lading"
	DocTypeCertificateOfOrigin DocumentType = "certificate_of_origin"
	DocTypeCommercialInvoice   DocumentType = "commercial_invoice"
	DocTypePackingList         DocumentType = "packing_list"
	DocTypePhytosanitaryCert   DocumentType = "phytosanitary_certificate"
	DocTypeExportLicense       DocumentType = "export_license"
	DocTypeDangerousGoodsDecl  DocumentType = "dangerous_goods_declaration"
	DocTypeInsuranceCert       DocumentType = "insurance_certificate"
)

// validDocumentTypes is the single source of truth for supported types.
var validDocumentTypes = map[DocumentType]bool{
	DocTypeBillOfLading:        true,
	DocTypeCertificateOfOrigin: true,
	DocTypeCommercialInvoice:   true,
	DocTypePackingList:         true,
	DocTypePhytosanitaryCert:   true,
	DocTypeExportLicense:       true,
	DocTypeDangerousGoodsDecl:  true,
	DocTypeInsuranceCert:       true,
}

// ParseDocumentType constructs a DocumentType from external input.
// Returns CodeValidation when the value is empty or unsupported.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", domainerr.New(domainerr.CodeValidation, "document type cannot be empty")
	}
	t := DocumentType(s)
	if !t.IsValid() {
		return "", domainerr.Newf(domainerr.CodeValidation, "unsupported document type %q", s)
	}
	return t, nil
}

func (t DocumentType) IsValid() bool {
	return validDocumentTypes[t]
}
