package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
)

// Config represents the main configuration for fdp.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Account    AccountConfig    `toml:"account"`
	Encryption EncryptionConfig `toml:"encryption"`
	Node       NodeConfig       `toml:"node"`
	Vault      VaultConfig      `toml:"vault"`
	Upload     UploadConfig     `toml:"upload"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// AccountConfig locates the local account key file.
type AccountConfig struct {
	Username string `toml:"username"`
	KeyPath  string `toml:"key_path"`
}

// EncryptionConfig selects how account secrets are sealed.
type EncryptionConfig struct {
	Type             string `toml:"type"`                         // "age" (default) or "test"
	ScryptWorkFactor int    `toml:"scrypt_work_factor,omitempty"` // 0 keeps age's default
}

// NodeConfig holds connection settings shared by every upload.
type NodeConfig struct {
	BatchID      string `toml:"batch_id"`
	CacheEntries int    `toml:"cache_entries"` // immutable objects kept in memory; 0 disables
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "sqlite", "bolt", "s3" or "http"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`

	// SQLite-specific fields (only used when Type == "sqlite")
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// Bolt-specific fields (only used when Type == "bolt")
	BoltPath string `toml:"bolt_path,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// HTTP-specific fields (only used when Type == "http")
	HTTPURL string `toml:"http_url,omitempty"`
}

// UploadConfig holds the defaults applied to every file upload.
type UploadConfig struct {
	BlockSize   string `toml:"block_size"` // human size, e.g. "1MB"
	ContentType string `toml:"content_type"`
	Concurrency int    `toml:"concurrency"`
}

// BlockSizeBytes parses BlockSize. An empty value returns 0, meaning the
// built-in default.
func (u UploadConfig) BlockSizeBytes() (int, error) {
	if u.BlockSize == "" {
		return 0, nil
	}
	n, err := units.FromHumanSize(u.BlockSize)
	if err != nil {
		return 0, fmt.Errorf("parsing block size %q: %w", u.BlockSize, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("block size %q must be positive", u.BlockSize)
	}
	return int(n), nil
}

// GatewayConfig holds settings for fdp-gateway.
type GatewayConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// FilesystemConfig holds settings for local directory imports.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config rooted at baseDir with a local
// filesystem vault.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Account: AccountConfig{
			KeyPath: filepath.Join(baseDir, "keys", "account.key"),
		},
		Encryption: EncryptionConfig{Type: "age"},
		Node: NodeConfig{
			BatchID:      "local",
			CacheEntries: 256,
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Upload: UploadConfig{
			BlockSize:   "1MB",
			Concurrency: 4,
		},
		Gateway: GatewayConfig{
			ListenAddr: "127.0.0.1:1633",
		},
		Filesystem: FilesystemConfig{
			Ignore: []string{".git", ".DS_Store"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It fails if a config already exists there.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config at path, e.g. after an account is created.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
