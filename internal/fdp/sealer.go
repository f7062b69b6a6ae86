package fdp

// Sealer protects a secret with a passphrase. Open fails on a wrong
// passphrase or tampered input.
type Sealer interface {
	Seal(passphrase string, plaintext []byte) ([]byte, error)
	Open(passphrase string, sealed []byte) ([]byte, error)
}
