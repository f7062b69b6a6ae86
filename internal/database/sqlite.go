// Package database implements the sqlite vault backend.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"fdp-go/internal/database/migrations"
	"fdp-go/internal/fdp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteVault implements fdp.Vault with one row per object and feed update.
type SQLiteVault struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteVault opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:".
func NewSQLiteVault(path string) (*SQLiteVault, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteVault{db: db, path: path, now: time.Now}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// each new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", p, err)
		}
	}
	return db, nil
}

func readAllSized(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

// PutContent stores content identified by its address. Existing rows are kept.
func (s *SQLiteVault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	data, err := readAllSized(r, size)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO contents (address, data, size, created_at) VALUES (?, ?, ?, ?)",
		address, data, size, s.now().UTC())
	if err != nil {
		return fmt.Errorf("inserting content %s: %w", address, err)
	}
	return nil
}

// GetContent retrieves content by address.
func (s *SQLiteVault) GetContent(ctx context.Context, address string, w io.Writer) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM contents WHERE address = ?", address).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("content %s: %w", address, fdp.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("selecting content %s: %w", address, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (s *SQLiteVault) rowExists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasContent reports whether address is stored.
func (s *SQLiteVault) HasContent(ctx context.Context, address string) (bool, error) {
	ok, err := s.rowExists(ctx, "SELECT 1 FROM contents WHERE address = ?", address)
	if err != nil {
		return false, fmt.Errorf("checking content %s: %w", address, err)
	}
	return ok, nil
}

// Pin marks stored content as pinned.
func (s *SQLiteVault) Pin(ctx context.Context, address string) error {
	ok, err := s.HasContent(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pinning %s: %w", address, fdp.ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO pins (address, pinned_at) VALUES (?, ?)", address, s.now().UTC())
	if err != nil {
		return fmt.Errorf("pinning %s: %w", address, err)
	}
	return nil
}

// IsPinned reports whether address has been pinned.
func (s *SQLiteVault) IsPinned(ctx context.Context, address string) (bool, error) {
	ok, err := s.rowExists(ctx, "SELECT 1 FROM pins WHERE address = ?", address)
	if err != nil {
		return false, fmt.Errorf("checking pin %s: %w", address, err)
	}
	return ok, nil
}

// PutFeedUpdate stores one version of a feed slot, replacing an existing row.
func (s *SQLiteVault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	data, err := readAllSized(r, size)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO feed_updates (slot, version, envelope, created_at) VALUES (?, ?, ?, ?)",
		slot, version, data, s.now().UTC())
	if err != nil {
		return fmt.Errorf("inserting feed update %s/%d: %w", slot, version, err)
	}
	return nil
}

// GetFeedUpdate retrieves one version of a feed slot.
func (s *SQLiteVault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT envelope FROM feed_updates WHERE slot = ? AND version = ?", slot, version).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("feed %s version %d: %w", slot, version, fdp.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("selecting feed update %s/%d: %w", slot, version, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write feed update: %w", err)
	}
	return nil
}

// LatestFeedVersion returns the highest stored version of slot, or 0.
func (s *SQLiteVault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM feed_updates WHERE slot = ?", slot).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("selecting feed version %s: %w", slot, err)
	}
	return version, nil
}

// ValidateSetup verifies the connection and that the schema is current.
func (s *SQLiteVault) ValidateSetup(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite vault %s not reachable: %w", s.path, err)
	}
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the vault database to destPath.
func (s *SQLiteVault) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Path returns the database path the vault was opened with.
func (s *SQLiteVault) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteVault) Close() error {
	return s.db.Close()
}

var _ fdp.Vault = (*SQLiteVault)(nil)
