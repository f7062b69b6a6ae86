package testutil

import (
	"testing"

	"fdp-go/internal/encryption"
	"fdp-go/internal/fdp"
	"fdp-go/internal/node"
	"fdp-go/internal/vault"
)

// TestBatchID is the postage batch used by test sessions.
const TestBatchID = "test-batch"

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault()
}

// NewTestSealer returns the fast, insecure sealer.
func NewTestSealer() fdp.Sealer {
	return encryption.NewTestSealer()
}

// NewTestNode creates a node over a fresh in-memory vault.
func NewTestNode(t *testing.T) *node.Client {
	t.Helper()
	return NewTestNodeOver(t, NewTestVault())
}

// NewTestNodeOver creates a node over v, for tests that inspect the vault.
func NewTestNodeOver(t *testing.T, v fdp.Vault) *node.Client {
	t.Helper()
	n, err := node.NewClient(v)
	if err != nil {
		t.Fatalf("node.NewClient() error = %v", err)
	}
	return n
}

// NewWallet generates a random account wallet.
func NewWallet(t *testing.T) *fdp.Wallet {
	t.Helper()
	w, err := fdp.GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	return w
}

// NewTestSession creates a session for a new random account on n.
func NewTestSession(t *testing.T, n fdp.Node) *fdp.Session {
	t.Helper()
	s, err := fdp.NewSession(NewWallet(t), n, TestBatchID)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}
