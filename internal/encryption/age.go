package encryption

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"fdp-go/internal/fdp"
)

// AgeSealer implements fdp.Sealer with age's scrypt passphrase
// encryption. It protects account seeds and the secret pointer.
type AgeSealer struct {
	workFactor int
}

var _ fdp.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates an AgeSealer. workFactor is the scrypt log2 work
// factor; 0 keeps age's default.
func NewAgeSealer(workFactor int) *AgeSealer {
	return &AgeSealer{workFactor: workFactor}
}

// Seal encrypts plaintext with the passphrase.
func (s *AgeSealer) Seal(passphrase string, plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing sealed secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing sealed secret: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts sealed with the passphrase. A wrong passphrase fails.
func (s *AgeSealer) Open(passphrase string, sealed []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("opening sealed secret: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading sealed secret: %w", err)
	}
	return plaintext, nil
}
