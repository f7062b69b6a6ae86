package fdp

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/hkdf"
)

// Wallet holds the signing key of an account or a pod.
type Wallet struct {
	key ed25519.PrivateKey
}

// GenerateWallet creates a wallet from a fresh random seed.
func GenerateWallet() (*Wallet, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// WalletFromSeed restores a wallet from its 32-byte seed.
func WalletFromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, validationError("invalid seed length %d, want %d", len(seed), ed25519.SeedSize)
	}
	return &Wallet{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (w *Wallet) PrivateKey() ed25519.PrivateKey { return w.key }

func (w *Wallet) PublicKey() ed25519.PublicKey { return w.key.Public().(ed25519.PublicKey) }

// Seed returns the 32-byte seed the key is derived from.
func (w *Wallet) Seed() []byte { return w.key.Seed() }

func (w *Wallet) Address() Address { return AddressFromPublicKey(w.PublicKey()) }

// AddressFromPublicKey derives the owner address of a public key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	copy(a[:], Hash(pub)[ReferenceSize-AddressSize:])
	return a
}

// DerivePodWallet derives the wallet of the pod at index from the account
// wallet. The derivation is deterministic, so a pod's key never has to be
// stored.
func DerivePodWallet(account *Wallet, index int) (*Wallet, error) {
	info := []byte("fdp/pod/" + strconv.Itoa(index))
	r := hkdf.New(sha256.New, account.Seed(), nil, info)

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("deriving pod key: %w", err)
	}
	return WalletFromSeed(seed)
}
