// Package fs walks local directory trees for import into a pod.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Entry is one local file or directory found by Walk.
type Entry struct {
	RelPath string // relative to the walk root, slash separated
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Resolve returns the absolute form of rawPath after checking that it
// names a directory or regular file.
func Resolve(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat path: %w", err)
	}
	if err := checkMode(absPath, info.Mode()); err != nil {
		return "", nil, err
	}
	return absPath, info, nil
}

func checkMode(p string, mode fs.FileMode) error {
	switch {
	case mode&fs.ModeSymlink != 0:
		return fmt.Errorf("symlinks not supported: %s", p)
	case mode&fs.ModeDevice != 0:
		return fmt.Errorf("device files not supported: %s", p)
	case mode&fs.ModeNamedPipe != 0:
		return fmt.Errorf("named pipes not supported: %s", p)
	case mode&fs.ModeSocket != 0:
		return fmt.Errorf("sockets not supported: %s", p)
	}
	return nil
}

// Walk lists the directories and regular files under root in lexical
// order, so every directory precedes its contents. Ignored directories are
// skipped with their whole subtree. extra patterns are combined with the
// root's .fdpignore. Special files are skipped.
func Walk(root string, extra []string) ([]Entry, error) {
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, extra...), filePatterns...))

	var entries []Entry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		entries = append(entries, Entry{
			RelPath: filepath.ToSlash(rel),
			IsDir:   d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return entries, nil
}
