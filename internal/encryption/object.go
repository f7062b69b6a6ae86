package encryption

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ObjectKeySize is the length of a per-object key.
const ObjectKeySize = chacha20poly1305.KeySize

// SealObject encrypts plaintext under a fresh random key with
// XChaCha20-Poly1305 and returns the key and nonce|ciphertext.
func SealObject(plaintext []byte) (key, sealed []byte, err error) {
	key = make([]byte, ObjectKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("generating object key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	return key, aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenObject reverses SealObject.
func OpenObject(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("sealed object is %d bytes, too short", len(sealed))
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("authenticating object: %w", err)
	}
	return plaintext, nil
}
