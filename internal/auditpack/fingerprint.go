package auditpack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"

	"exportgate/internal/decision"
	"exportgate/internal/document"
)

// fingerprintInput is the deterministic digest input: the sorted list of
// (document id, state, content hash) triples plus the decision's summary
// counts. Canonicalized per RFC 8785 before hashing so field order and
// whitespace can never produce a spurious mismatch.
type fingerprintInput struct {
	Documents []fingerprintDoc `json:"documents"`
	Summary   decision.Summary `json:"summary"`
}

type fingerprintDoc struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	ContentHash string `json:"content_hash"`
}

// Fingerprint computes the content digest over documents and summary counts.
func Fingerprint(docs []*document.Document, summary decision.Summary) (string, error) {
	input := fingerprintInput{
		Documents: make([]fingerprintDoc, 0, len(docs)),
		Summary:   summary,
	}
	for _, doc := range docs {
		input.Documents = append(input.Documents, fingerprintDoc{
			ID:          doc.ID.String(),
			State:       string(doc.State),
			ContentHash: doc.ContentHash,
		})
	}
	sort.Slice(input.Documents, func(i, j int) bool {
		return input.Documents[i].ID < input.Documents[j].ID
	})

	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint input: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize fingerprint input: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}
