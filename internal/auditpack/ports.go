package auditpack

import "context"

// Signer is the signing collaborator. Calls are bounded by the assembler's
// signing timeout; failures surface as SIGNING_FAILED, never as a hang.
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// Timestamper is the timestamp-authority collaborator.
type Timestamper interface {
	Timestamp(ctx context.Context, data []byte) (string, error)
}
