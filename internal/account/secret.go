// Package account stores and restores account wallets: the sealed seed
// is kept in a feed so the account can be logged into from another
// machine, and in a local key file for day-to-day unlocking.
package account

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"

	"fdp-go/internal/fdp"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateUsername checks that name is 1 to 64 characters of [a-z0-9_-].
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid username %q: use 1 to 64 characters from a-z, 0-9, '_' and '-'", fdp.ErrValidation, name)
	}
	return nil
}

// UploadEncryptedSecret writes the sealed account secret to the
// account's own feed under topic username.
func UploadEncryptedSecret(ctx context.Context, s *fdp.Session, username string, sealed []byte) (fdp.Reference, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	ref, err := s.Feeds.Write(ctx, username, sealed, s.Wallet.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("uploading secret for %s: %w", username, err)
	}
	return ref, nil
}

// GetEncryptedSecret reads the sealed secret written by UploadEncryptedSecret.
func GetEncryptedSecret(ctx context.Context, feeds *fdp.FeedStore, username string, owner fdp.Address) ([]byte, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	sealed, err := feeds.Read(ctx, owner, username)
	if err != nil {
		return nil, fmt.Errorf("reading secret for %s: %w", username, err)
	}
	return sealed, nil
}

func pointerTopic(pub []byte, password string) string {
	return hex.EncodeToString(pub) + password
}

// PublishSecretPointer stores sealed as a plain pinned object and writes
// its address, sealed with password, to the feed at hex(publicKey)+password.
// Knowing the public key and the password is then enough to find it.
func PublishSecretPointer(ctx context.Context, s *fdp.Session, sealer fdp.Sealer, password string, sealed []byte) (fdp.Reference, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is empty", fdp.ErrValidation)
	}
	addr, err := s.Store.UploadData(ctx, s.BatchID, sealed, fdp.PutOptions{Pin: true})
	if err != nil {
		return nil, fmt.Errorf("uploading secret object: %w", err)
	}
	pointer, err := sealer.Seal(password, []byte(addr.String()))
	if err != nil {
		return nil, fmt.Errorf("sealing secret pointer: %w", err)
	}
	ref, err := s.Feeds.Write(ctx, pointerTopic(s.Wallet.PublicKey(), password), pointer, s.Wallet.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("writing secret pointer: %w", err)
	}
	return ref, nil
}

// GetEncryptedSecretByPublicKey follows the pointer written by
// PublishSecretPointer and returns the stored bytes.
func GetEncryptedSecretByPublicKey(ctx context.Context, store fdp.ObjectStore, feeds *fdp.FeedStore, sealer fdp.Sealer, pub []byte, password string, owner fdp.Address) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is empty", fdp.ErrValidation)
	}
	pointer, err := feeds.Read(ctx, owner, pointerTopic(pub, password))
	if err != nil {
		return nil, fmt.Errorf("reading secret pointer: %w", err)
	}
	plain, err := sealer.Open(password, pointer)
	if err != nil {
		return nil, fmt.Errorf("opening secret pointer: %w", err)
	}
	const hexAddrLen = 2 * fdp.ReferenceSize
	if len(plain) < hexAddrLen {
		return nil, fmt.Errorf("%w: secret pointer is %d bytes", fdp.ErrConsistency, len(plain))
	}
	addr, err := fdp.ParseReference(string(plain[:hexAddrLen]))
	if err != nil {
		return nil, fmt.Errorf("%w: secret pointer: %v", fdp.ErrConsistency, err)
	}
	data, err := store.DownloadChunk(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("downloading secret object: %w", err)
	}
	return data, nil
}
