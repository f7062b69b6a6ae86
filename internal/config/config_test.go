package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/fdp",
		LogDir:  "/home/user/.local/share/fdp/log",
		Account: AccountConfig{
			Username: "alice",
			KeyPath:  "/home/user/.local/share/fdp/keys/account.key",
		},
		Encryption: EncryptionConfig{Type: "age", ScryptWorkFactor: 15},
		Node:       NodeConfig{BatchID: "batch-1", CacheEntries: 64},
		Vault: VaultConfig{
			Type:           "s3",
			S3Bucket:       "pods",
			S3Prefix:       "fdp/",
			S3Region:       "eu-west-1",
			S3Endpoint:     "http://localhost:9000",
			S3UsePathStyle: true,
		},
		Upload:  UploadConfig{BlockSize: "512KiB", ContentType: "application/octet-stream", Concurrency: 8},
		Gateway: GatewayConfig{ListenAddr: ":1633"},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", ".git"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Account != original.Account {
		t.Errorf("Account = %+v, want %+v", got.Account, original.Account)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Node != original.Node {
		t.Errorf("Node = %+v, want %+v", got.Node, original.Node)
	}
	if got.Vault != original.Vault {
		t.Errorf("Vault = %+v, want %+v", got.Vault, original.Vault)
	}
	if got.Upload != original.Upload {
		t.Errorf("Upload = %+v, want %+v", got.Upload, original.Upload)
	}
	if got.Gateway.ListenAddr != ":1633" {
		t.Errorf("Gateway.ListenAddr = %q, want %q", got.Gateway.ListenAddr, ":1633")
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/fdp")

	if cfg.BaseDir != "/data/fdp" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/fdp")
	}
	if cfg.LogDir != "/data/fdp/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/fdp/log")
	}
	if cfg.Account.KeyPath != "/data/fdp/keys/account.key" {
		t.Errorf("Account.KeyPath = %q, want %q", cfg.Account.KeyPath, "/data/fdp/keys/account.key")
	}
	if cfg.Vault.Type != "filesystem" || cfg.Vault.FSVaultRoot != "/data/fdp/vault" {
		t.Errorf("Vault = %+v, want filesystem vault at /data/fdp/vault", cfg.Vault)
	}
	if cfg.Node.BatchID == "" {
		t.Error("Node.BatchID is empty")
	}
}

func TestUploadConfig_BlockSizeBytes(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		want    int
		wantErr bool
	}{
		{name: "empty uses default", size: "", want: 0},
		{name: "decimal megabyte", size: "1MB", want: 1000000},
		{name: "kilobytes", size: "4kB", want: 4000},
		{name: "plain bytes", size: "1024", want: 1024},
		{name: "invalid", size: "lots", wantErr: true},
		{name: "zero", size: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UploadConfig{BlockSize: tt.size}.BlockSizeBytes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("BlockSizeBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BlockSizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fdp.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fdp.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fdp.toml")
	cfg := NewConfig(dir)

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg.Account.Username = "bob"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Account.Username != "bob" {
		t.Errorf("Account.Username = %q, want %q", got.Account.Username, "bob")
	}
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fdp.toml")
		cfg := NewConfig(dir)
		cfg.Vault = VaultConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Vault.Type != "memory" {
			t.Errorf("Vault.Type = %q, want %q", got.Vault.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/fdp.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
