package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"fdp-go/internal/fdp"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores all content and feed updates in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	content map[string][]byte           // address -> content
	pinned  map[string]bool             // address -> pinned
	feeds   map[string]map[int64][]byte // slot -> version -> envelope
	latest  map[string]int64            // slot -> highest version
	mu      sync.RWMutex
}

// NewMemoryVault creates a new empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		content: make(map[string][]byte),
		pinned:  make(map[string]bool),
		feeds:   make(map[string]map[int64][]byte),
		latest:  make(map[string]int64),
	}
}

func readSized(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

// PutContent stores content identified by its address.
func (m *MemoryVault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := readSized(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.content[address] = data
	return nil
}

// GetContent retrieves content by address.
func (m *MemoryVault) GetContent(ctx context.Context, address string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	data, ok := m.content[address]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("content %s: %w", address, fdp.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// HasContent reports whether address is stored.
func (m *MemoryVault) HasContent(ctx context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.content[address]
	return ok, nil
}

// Pin marks address as pinned.
func (m *MemoryVault) Pin(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.content[address]; !ok {
		return fmt.Errorf("pinning %s: %w", address, fdp.ErrNotFound)
	}
	m.pinned[address] = true
	return nil
}

// IsPinned reports whether address has been pinned.
func (m *MemoryVault) IsPinned(ctx context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pinned[address], nil
}

// PutFeedUpdate stores one version of a feed slot.
func (m *MemoryVault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	data, err := readSized(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.feeds[slot]
	if !ok {
		versions = make(map[int64][]byte)
		m.feeds[slot] = versions
	}
	versions[version] = data
	if version > m.latest[slot] {
		m.latest[slot] = version
	}
	return nil
}

// GetFeedUpdate retrieves one version of a feed slot.
func (m *MemoryVault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	data, ok := m.feeds[slot][version]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("feed %s version %d: %w", slot, version, fdp.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write feed update: %w", err)
	}
	return nil
}

// LatestFeedVersion returns the highest stored version of slot, or 0.
func (m *MemoryVault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest[slot], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements fdp.Vault interface
var _ fdp.Vault = (*MemoryVault)(nil)
