package fdp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/minio/blake2b-simd"
)

const (
	// ReferenceSize is the length of a plain content address.
	ReferenceSize = 32

	// EncryptedReferenceSize is the length of a reference to an encrypted
	// object: the content address followed by the decryption key.
	EncryptedReferenceSize = 64

	// AddressSize is the length of an owner address.
	AddressSize = 20
)

// Reference is an opaque content address returned by the object store.
// It is rendered as lowercase hex in text and JSON.
type Reference []byte

// ParseReference decodes a hex reference, with or without a 0x prefix.
func ParseReference(s string) (Reference, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, validationError("invalid reference %q: %v", s, err)
	}
	if len(b) != ReferenceSize && len(b) != EncryptedReferenceSize {
		return nil, validationError("invalid reference length %d, want %d or %d", len(b), ReferenceSize, EncryptedReferenceSize)
	}
	return Reference(b), nil
}

func (r Reference) String() string { return hex.EncodeToString(r) }

// Encrypted reports whether the reference carries a decryption key.
func (r Reference) Encrypted() bool { return len(r) == EncryptedReferenceSize }

// ContentAddress returns the part of the reference that addresses the stored bytes.
func (r Reference) ContentAddress() Reference {
	if len(r) > ReferenceSize {
		return r[:ReferenceSize]
	}
	return r
}

// Key returns the decryption key of an encrypted reference, or nil.
func (r Reference) Key() []byte {
	if !r.Encrypted() {
		return nil
	}
	return r[ReferenceSize:]
}

func (r Reference) Equal(other Reference) bool { return bytes.Equal(r, other) }

func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reference) UnmarshalText(text []byte) error {
	ref, err := ParseReference(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Hash returns the BLAKE2b-256 digest of the concatenated parts.
func Hash(parts ...[]byte) []byte {
	h := blake2b.New256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// ContentAddress returns the address under which data is stored.
func ContentAddress(data []byte) Reference {
	return Reference(Hash(data))
}

// Address identifies the owner of feeds: the last 20 bytes of the
// BLAKE2b-256 digest of an ed25519 public key.
type Address [AddressSize]byte

// ParseAddress decodes a hex address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return a, validationError("invalid address %q: %v", s, err)
	}
	if len(b) != AddressSize {
		return a, validationError("invalid address length %d, want %d", len(b), AddressSize)
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string { return hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return fmt.Errorf("decoding address: %w", err)
	}
	*a = parsed
	return nil
}
