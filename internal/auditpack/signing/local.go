// Package signing provides an in-process signer and timestamper, used as the
// default collaborator in dev mode and in tests. Production deployments wire
// an external signing service behind the same ports.
package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// LocalSigner signs pack payloads with an in-process ed25519 key.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func NewLocalSigner() (*LocalSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &LocalSigner{priv: priv, pub: pub}, nil
}

func (s *LocalSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(s.priv, data), nil
}

// PublicKey exposes the verification key.
func (s *LocalSigner) PublicKey() ed25519.PublicKey {
	return s.pub
}

// LocalTimestamper issues tokens binding a digest to the current time. It is
// not a real timestamp authority; the token format is digest:unixnano,
// base64-encoded.
type LocalTimestamper struct{}

func NewLocalTimestamper() *LocalTimestamper {
	return &LocalTimestamper{}
}

func (t *LocalTimestamper) Timestamp(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest := sha256.Sum256(data)
	token := fmt.Sprintf("%x:%d", digest, time.Now().UnixNano())
	return base64.StdEncoding.EncodeToString([]byte(token)), nil
}
