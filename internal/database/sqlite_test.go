package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fdp-go/internal/fdp"
	"fdp-go/internal/vault/vaulttest"
)

func newTestVault(t *testing.T) *SQLiteVault {
	t.Helper()

	v, err := NewSQLiteVault(filepath.Join(t.TempDir(), "vault.sqlite"))
	if err != nil {
		t.Fatalf("NewSQLiteVault() error = %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func TestSQLiteVault(t *testing.T) {
	vaulttest.Run(t, func(t *testing.T) fdp.Vault {
		return newTestVault(t)
	})
}

func TestSQLiteVault_InMemory(t *testing.T) {
	v, err := NewSQLiteVault(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteVault() error = %v", err)
	}
	defer v.Close()

	ctx := t.Context()
	if err := v.PutFeedUpdate(ctx, "slot", 1, strings.NewReader("a"), 1); err != nil {
		t.Fatalf("PutFeedUpdate() error = %v", err)
	}
	latest, err := v.LatestFeedVersion(ctx, "slot")
	if err != nil {
		t.Fatalf("LatestFeedVersion() error = %v", err)
	}
	if latest != 1 {
		t.Errorf("LatestFeedVersion() = %d, want 1", latest)
	}
}

func TestSQLiteVault_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.sqlite")
	ctx := t.Context()

	v, err := NewSQLiteVault(path)
	if err != nil {
		t.Fatalf("NewSQLiteVault() error = %v", err)
	}
	if err := v.PutContent(ctx, "abc", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	v.Close()

	v, err = NewSQLiteVault(path)
	if err != nil {
		t.Fatalf("reopen NewSQLiteVault() error = %v", err)
	}
	defer v.Close()

	ok, err := v.HasContent(ctx, "abc")
	if err != nil || !ok {
		t.Errorf("HasContent() after reopen = %v, %v, want true, nil", ok, err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestSQLiteVault_BackupTo(t *testing.T) {
	v := newTestVault(t)
	ctx := t.Context()
	if err := v.PutContent(ctx, "abc", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.sqlite")
	if err := v.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup file not created: %v", err)
	}

	restored, err := NewSQLiteVault(dest)
	if err != nil {
		t.Fatalf("NewSQLiteVault(backup) error = %v", err)
	}
	defer restored.Close()
	ok, err := restored.HasContent(ctx, "abc")
	if err != nil || !ok {
		t.Errorf("HasContent() in backup = %v, %v, want true, nil", ok, err)
	}
}
