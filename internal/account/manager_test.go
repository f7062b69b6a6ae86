package account_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fdp-go/internal/account"
	"fdp-go/internal/fdp"
	"fdp-go/internal/testutil"
)

func newManager(t *testing.T) (*account.Manager, string) {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "keys", "account.key")
	return account.NewManager(testutil.NewTestSealer(), keyPath, fdp.NewNopLogger()), keyPath
}

func TestManager_CreateUnlock(t *testing.T) {
	ctx := t.Context()
	node := testutil.NewTestNode(t)
	m, keyPath := newManager(t)

	if m.IsConfigured() {
		t.Fatal("IsConfigured() = true before Create")
	}

	created, err := m.Create(ctx, node, testutil.TestBatchID, "alice", "secret")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !m.IsConfigured() {
		t.Fatal("IsConfigured() = false after Create")
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("key file mode = %o, want 600", mode)
	}

	kf, err := m.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if kf.Username != "alice" || kf.Address != created.Owner() {
		t.Errorf("Info() = %+v, want alice at %s", kf, created.Owner())
	}

	unlocked, err := m.Unlock(node, testutil.TestBatchID, "secret")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if unlocked.Owner() != created.Owner() {
		t.Errorf("Unlock() owner = %s, want %s", unlocked.Owner(), created.Owner())
	}

	if _, err := m.Unlock(node, testutil.TestBatchID, "wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase expected error")
	}
}

func TestManager_CreateTwice(t *testing.T) {
	node := testutil.NewTestNode(t)
	m, _ := newManager(t)

	if _, err := m.Create(t.Context(), node, testutil.TestBatchID, "alice", "secret"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.Create(t.Context(), node, testutil.TestBatchID, "alice", "secret"); err == nil {
		t.Error("second Create() expected error")
	}
}

func TestManager_CreateValidation(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		passphrase string
	}{
		{name: "bad username", username: "ALICE", passphrase: "secret"},
		{name: "empty passphrase", username: "alice", passphrase: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counting := testutil.NewCountingNode(testutil.NewTestNode(t))
			m, _ := newManager(t)

			_, err := m.Create(t.Context(), counting, testutil.TestBatchID, tt.username, tt.passphrase)
			if !errors.Is(err, fdp.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			if counting.FeedWrites() != 0 {
				t.Errorf("FeedWrites() = %d, want 0", counting.FeedWrites())
			}
			if m.IsConfigured() {
				t.Error("key file written after validation failure")
			}
		})
	}
}

func TestManager_Login(t *testing.T) {
	ctx := t.Context()
	node := testutil.NewTestNode(t)

	creator, _ := newManager(t)
	created, err := creator.Create(ctx, node, testutil.TestBatchID, "alice", "secret")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// a second machine sharing the same node
	other, _ := newManager(t)
	restored, err := other.Login(ctx, node, testutil.TestBatchID, "alice", created.Owner(), "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if restored.Owner() != created.Owner() {
		t.Errorf("Login() owner = %s, want %s", restored.Owner(), created.Owner())
	}
	if !other.IsConfigured() {
		t.Error("Login() did not save a key file")
	}

	t.Run("unknown username", func(t *testing.T) {
		m, _ := newManager(t)
		_, err := m.Login(ctx, node, testutil.TestBatchID, "bob", created.Owner(), "secret")
		if !errors.Is(err, fdp.ErrNotFound) {
			t.Errorf("Login() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		m, _ := newManager(t)
		if _, err := m.Login(ctx, node, testutil.TestBatchID, "alice", created.Owner(), "nope"); err == nil {
			t.Error("Login() with wrong passphrase expected error")
		}
		if m.IsConfigured() {
			t.Error("key file written after failed login")
		}
	})
}

func TestManager_InfoMissing(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.Info(); !errors.Is(err, fdp.ErrNotFound) {
		t.Errorf("Info() error = %v, want ErrNotFound", err)
	}
}
