package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"fdp-go/internal/fdp"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores content, pins and feed updates as files in a directory structure:
//
//	<root>/
//	  content/
//	    <address>                (content files, named by content address)
//	  pins/
//	    <address>                (empty marker files)
//	  feeds/
//	    <slot>/<version>         (feed envelopes, zero-padded versions)
type FileSystemVault struct {
	root       string
	contentDir string
	pinsDir    string
	feedsDir   string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	v := &FileSystemVault{
		root:       root,
		contentDir: filepath.Join(root, "content"),
		pinsDir:    filepath.Join(root, "pins"),
		feedsDir:   filepath.Join(root, "feeds"),
	}

	for _, dir := range []string{v.contentDir, v.pinsDir, v.feedsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}
	return v, nil
}

// versionName formats a feed version so that lexical order matches numeric order.
func versionName(version int64) string {
	return fmt.Sprintf("%020d", version)
}

// PutContent stores content identified by its address.
// The operation is idempotent: storing the same address multiple times is safe.
func (v *FileSystemVault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	destPath := filepath.Join(v.contentDir, address)

	// If content already exists, skip (idempotent)
	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return writeFile(destPath, r, size)
}

// GetContent retrieves content by address and writes it to w.
func (v *FileSystemVault) GetContent(ctx context.Context, address string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return readFile(filepath.Join(v.contentDir, address), w, "content "+address)
}

// HasContent reports whether address is stored.
func (v *FileSystemVault) HasContent(ctx context.Context, address string) (bool, error) {
	return exists(filepath.Join(v.contentDir, address))
}

// Pin writes a marker file for stored content.
func (v *FileSystemVault) Pin(ctx context.Context, address string) error {
	ok, err := v.HasContent(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pinning %s: %w", address, fdp.ErrNotFound)
	}
	if err := os.WriteFile(filepath.Join(v.pinsDir, address), nil, 0644); err != nil {
		return fmt.Errorf("writing pin marker: %w", err)
	}
	return nil
}

// IsPinned reports whether a pin marker exists for address.
func (v *FileSystemVault) IsPinned(ctx context.Context, address string) (bool, error) {
	return exists(filepath.Join(v.pinsDir, address))
}

// PutFeedUpdate stores one version of a feed slot.
func (v *FileSystemVault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	slotDir := filepath.Join(v.feedsDir, slot)
	if err := os.MkdirAll(slotDir, 0755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}
	return writeFile(filepath.Join(slotDir, versionName(version)), r, size)
}

// GetFeedUpdate retrieves one version of a feed slot.
func (v *FileSystemVault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(v.feedsDir, slot, versionName(version))
	return readFile(path, w, fmt.Sprintf("feed %s version %d", slot, version))
}

// LatestFeedVersion scans the slot directory for its highest version.
// Returns 0 if the slot has never been written.
func (v *FileSystemVault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(filepath.Join(v.feedsDir, slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading feed directory: %w", err)
	}

	var latest int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			// temp files from interrupted writes
			continue
		}
		latest = max(latest, version)
	}
	return latest, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.contentDir, v.pinsDir, v.feedsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// readFile copies srcPath to w. A missing file wraps fdp.ErrNotFound.
func readFile(srcPath string, w io.Writer, what string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", what, fdp.ErrNotFound)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements fdp.Vault interface
var _ fdp.Vault = (*FileSystemVault)(nil)
