package encryption

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"

	"fdp-go/internal/fdp"
)

// testHeader starts every secret sealed by TestSealer.
var testHeader = []byte("FDPSEAL\x00")

// ErrWrongPassphrase is returned by TestSealer.Open for a passphrase
// other than the one used to seal.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestSealer is a fast, deterministic sealer for tests. It stores a
// passphrase digest in front of the plaintext, so a wrong passphrase is
// detected while the plaintext stays readable. It provides no secrecy.
type TestSealer struct{}

var _ fdp.Sealer = (*TestSealer)(nil)

func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Seal(passphrase string, plaintext []byte) ([]byte, error) {
	digest := sha256.Sum256([]byte(passphrase))
	out := make([]byte, 0, len(testHeader)+len(digest)+len(plaintext))
	out = append(out, testHeader...)
	out = append(out, digest[:]...)
	return append(out, plaintext...), nil
}

func (s *TestSealer) Open(passphrase string, sealed []byte) ([]byte, error) {
	head := len(testHeader) + sha256.Size
	if len(sealed) < head || !bytes.Equal(sealed[:len(testHeader)], testHeader) {
		return nil, fmt.Errorf("invalid test sealer header")
	}
	digest := sha256.Sum256([]byte(passphrase))
	if !bytes.Equal(sealed[len(testHeader):head], digest[:]) {
		return nil, ErrWrongPassphrase
	}
	return bytes.Clone(sealed[head:]), nil
}
