package account

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fdp-go/internal/fdp"
)

// KeyFile is the on-disk form of a local account.
type KeyFile struct {
	Username   string      `json:"username"`
	Address    fdp.Address `json:"address"`
	PublicKey  string      `json:"public_key"`
	SealedSeed []byte      `json:"sealed_seed"`
}

// Manager creates, unlocks and restores the local account.
type Manager struct {
	sealer  fdp.Sealer
	keyPath string
	logger  fdp.Logger
}

// NewManager creates a Manager storing its key file at keyPath.
func NewManager(sealer fdp.Sealer, keyPath string, logger fdp.Logger) *Manager {
	return &Manager{sealer: sealer, keyPath: keyPath, logger: logger}
}

// IsConfigured reports whether a local key file exists.
func (m *Manager) IsConfigured() bool {
	_, err := os.Stat(m.keyPath)
	return err == nil
}

// Create generates a new account wallet, registers its sealed seed
// remotely under username and by public key, and saves the key file.
func (m *Manager) Create(ctx context.Context, node fdp.Node, batchID, username, passphrase string) (*fdp.Session, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase is empty", fdp.ErrValidation)
	}
	if m.IsConfigured() {
		return nil, fmt.Errorf("account key file already exists at %s", m.keyPath)
	}

	wallet, err := fdp.GenerateWallet()
	if err != nil {
		return nil, err
	}
	s, err := fdp.NewSession(wallet, node, batchID)
	if err != nil {
		return nil, err
	}
	sealed, err := m.sealer.Seal(passphrase, wallet.Seed())
	if err != nil {
		return nil, fmt.Errorf("sealing account seed: %w", err)
	}

	if _, err := UploadEncryptedSecret(ctx, s, username, sealed); err != nil {
		return nil, err
	}
	if _, err := PublishSecretPointer(ctx, s, m.sealer, passphrase, sealed); err != nil {
		return nil, err
	}
	if err := m.save(username, wallet, sealed); err != nil {
		return nil, err
	}
	m.logger.Info("account created", "username", username, "address", wallet.Address().String())
	return s, nil
}

// Unlock opens the local key file with passphrase.
func (m *Manager) Unlock(node fdp.Node, batchID, passphrase string) (*fdp.Session, error) {
	kf, err := m.Info()
	if err != nil {
		return nil, err
	}
	wallet, err := m.open(passphrase, kf.SealedSeed)
	if err != nil {
		return nil, err
	}
	if wallet.Address() != kf.Address {
		return nil, fmt.Errorf("%w: key file address %s does not match its seed", fdp.ErrConsistency, kf.Address)
	}
	return fdp.NewSession(wallet, node, batchID)
}

// Login restores the account of username at owner from its remote
// secret and saves it as the local key file, replacing any existing one.
func (m *Manager) Login(ctx context.Context, node fdp.Node, batchID, username string, owner fdp.Address, passphrase string) (*fdp.Session, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	sealed, err := GetEncryptedSecret(ctx, fdp.NewFeedStore(node, batchID), username, owner)
	if err != nil {
		return nil, err
	}
	wallet, err := m.open(passphrase, sealed)
	if err != nil {
		return nil, err
	}
	if wallet.Address() != owner {
		return nil, fmt.Errorf("%w: secret of %s restores address %s", fdp.ErrConsistency, owner, wallet.Address())
	}
	if err := m.save(username, wallet, sealed); err != nil {
		return nil, err
	}
	m.logger.Info("account restored", "username", username, "address", owner.String())
	return fdp.NewSession(wallet, node, batchID)
}

// Info returns the local key file without opening it.
func (m *Manager) Info() (*KeyFile, error) {
	data, err := os.ReadFile(m.keyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no account at %s: %w", m.keyPath, fdp.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: decoding key file %s: %v", fdp.ErrConsistency, m.keyPath, err)
	}
	return &kf, nil
}

func (m *Manager) open(passphrase string, sealed []byte) (*fdp.Wallet, error) {
	seed, err := m.sealer.Open(passphrase, sealed)
	if err != nil {
		return nil, fmt.Errorf("opening account seed: %w", err)
	}
	return fdp.WalletFromSeed(seed)
}

// save writes the key file atomically with owner-only permissions.
func (m *Manager) save(username string, wallet *fdp.Wallet, sealed []byte) error {
	kf := KeyFile{
		Username:   username,
		Address:    wallet.Address(),
		PublicKey:  hex.EncodeToString(wallet.PublicKey()),
		SealedSeed: sealed,
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key file: %w", err)
	}

	dir := filepath.Dir(m.keyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return fmt.Errorf("creating temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting key file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing key file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.keyPath); err != nil {
		return fmt.Errorf("saving key file: %w", err)
	}
	return nil
}
