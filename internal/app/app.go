package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fdp-go/internal/account"
	"fdp-go/internal/config"
	"fdp-go/internal/encryption"
	"fdp-go/internal/fdp"
	"fdp-go/internal/fs"
	"fdp-go/internal/node"
	"fdp-go/internal/vault"
)

// ErrLocked is returned by operations that need an unlocked account.
var ErrLocked = errors.New("account is locked")

// FDPApp is the application layer between the CLI and the file layer.
// It constructs all dependencies from config, holds the account session
// once unlocked, and exposes operations that accept raw local paths.
type FDPApp struct {
	cfg      *config.Config
	vault    fdp.Vault
	node     *node.Client
	accounts *account.Manager
	pods     *fdp.PodManager
	dirs     *fdp.DirectoryIndex
	files    *fdp.FileManager
	session  *fdp.Session
	clock    fdp.Clock
	op       *Operation
	logger   *slog.Logger
	logFile  *os.File
}

// NewFDPApp creates a fully wired FDPApp from the given config.
// operation identifies the CLI command being run (e.g. "Upload", "ListPods").
// The caller must call Close when done.
func NewFDPApp(ctx context.Context, cfg *config.Config, operation, parameters string, level slog.Level) (*FDPApp, error) {
	return newFDPApp(ctx, cfg, operation, parameters, level, fdp.RealClock{}, fdp.UUIDGenerator{})
}

func newFDPApp(ctx context.Context, cfg *config.Config, operation, parameters string, level slog.Level, clock fdp.Clock, ids fdp.IDGenerator) (*FDPApp, error) {
	op := NewOperation(ids, clock, operation, parameters)
	logger, logFile, err := NewLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := wire(ctx, cfg, clock, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.op = op
	a.logFile = logFile
	logger.Info("operation started", "operation", op.Name, "parameters", op.Parameters)
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, clock fdp.Clock, logger *slog.Logger) (*FDPApp, error) {
	if cfg.Node.BatchID == "" {
		return nil, fmt.Errorf("no batch_id configured")
	}
	defaults, err := uploadDefaults(cfg.Upload)
	if err != nil {
		return nil, err
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		closeVault(v)
		return nil, fmt.Errorf("vault setup: %w", err)
	}

	n, err := node.NewClient(v, node.WithCache(cfg.Node.CacheEntries), node.WithLogger(logger))
	if err != nil {
		closeVault(v)
		return nil, fmt.Errorf("creating node client: %w", err)
	}

	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		closeVault(v)
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	dirs := fdp.NewDirectoryIndex(clock, logger)
	pods := fdp.NewPodManager(dirs, logger)
	return &FDPApp{
		cfg:      cfg,
		vault:    v,
		node:     n,
		accounts: account.NewManager(sealer, cfg.Account.KeyPath, logger),
		pods:     pods,
		dirs:     dirs,
		files:    fdp.NewFileManager(pods, dirs, clock, logger, defaults),
		clock:    clock,
		logger:   logger,
	}, nil
}

// uploadDefaults applies the configured upload settings over the built-in ones.
func uploadDefaults(u config.UploadConfig) (fdp.UploadOptions, error) {
	opts := fdp.DefaultUploadOptions()
	blockSize, err := u.BlockSizeBytes()
	if err != nil {
		return opts, err
	}
	if blockSize > 0 {
		opts.BlockSize = blockSize
	}
	if u.ContentType != "" {
		opts.ContentType = u.ContentType
	}
	if u.Concurrency > 0 {
		opts.Concurrency = u.Concurrency
	}
	return opts, nil
}

func closeVault(v fdp.Vault) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Logger returns the operation logger.
func (a *FDPApp) Logger() *slog.Logger { return a.logger }

// OperationID returns the ID tagging this run's log lines.
func (a *FDPApp) OperationID() string { return a.op.ID }

func (a *FDPApp) requireSession() (*fdp.Session, error) {
	if a.session == nil {
		return nil, ErrLocked
	}
	return a.session, nil
}

// HasAccount reports whether a local key file exists.
func (a *FDPApp) HasAccount() bool { return a.accounts.IsConfigured() }

// CreateAccount creates a new account and unlocks it.
func (a *FDPApp) CreateAccount(ctx context.Context, username, passphrase string) (fdp.Address, error) {
	s, err := a.accounts.Create(ctx, a.node, a.cfg.Node.BatchID, username, passphrase)
	if err != nil {
		return fdp.Address{}, err
	}
	a.session = s
	return s.Owner(), nil
}

// Login restores the account of username at the hex owner address into
// the local key file and unlocks it.
func (a *FDPApp) Login(ctx context.Context, username, owner, passphrase string) (fdp.Address, error) {
	addr, err := fdp.ParseAddress(owner)
	if err != nil {
		return fdp.Address{}, err
	}
	s, err := a.accounts.Login(ctx, a.node, a.cfg.Node.BatchID, username, addr, passphrase)
	if err != nil {
		return fdp.Address{}, err
	}
	a.session = s
	return s.Owner(), nil
}

// Unlock opens the local key file.
func (a *FDPApp) Unlock(passphrase string) error {
	s, err := a.accounts.Unlock(a.node, a.cfg.Node.BatchID, passphrase)
	if err != nil {
		return err
	}
	a.session = s
	return nil
}

// AccountInfo returns the local key file.
func (a *FDPApp) AccountInfo() (*account.KeyFile, error) {
	return a.accounts.Info()
}

// CreatePod creates a pod and returns its address.
func (a *FDPApp) CreatePod(ctx context.Context, name string) (fdp.Address, error) {
	s, err := a.requireSession()
	if err != nil {
		return fdp.Address{}, err
	}
	pod, err := a.pods.Create(ctx, s, name)
	if err != nil {
		return fdp.Address{}, err
	}
	return pod.Address(), nil
}

// ListPods returns the pod names in creation order.
func (a *FDPApp) ListPods(ctx context.Context) ([]string, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.pods.List(ctx, s)
}

// DeletePod removes a pod from the account.
func (a *FDPApp) DeletePod(ctx context.Context, name string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return a.pods.Delete(ctx, s, name)
}

func (a *FDPApp) openPod(ctx context.Context, name string) (*fdp.Session, *fdp.Pod, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, nil, err
	}
	pod, err := a.pods.Open(ctx, s, name)
	if err != nil {
		return nil, nil, err
	}
	return s, pod, nil
}

// MakeDir creates a directory in the pod.
func (a *FDPApp) MakeDir(ctx context.Context, podName, dirPath string) error {
	s, pod, err := a.openPod(ctx, podName)
	if err != nil {
		return err
	}
	return a.dirs.Create(ctx, s, pod, dirPath)
}

// RemoveDir removes an empty directory from the pod.
func (a *FDPApp) RemoveDir(ctx context.Context, podName, dirPath string) error {
	s, pod, err := a.openPod(ctx, podName)
	if err != nil {
		return err
	}
	return a.dirs.Delete(ctx, s, pod, dirPath)
}

// List returns the content of a pod directory.
func (a *FDPApp) List(ctx context.Context, podName, dirPath string) (*fdp.DirectoryListing, error) {
	s, pod, err := a.openPod(ctx, podName)
	if err != nil {
		return nil, err
	}
	return a.dirs.List(ctx, s, pod, dirPath)
}

// Upload stores the local file at localPath under remotePath.
func (a *FDPApp) Upload(ctx context.Context, podName, localPath, remotePath string, opts *fdp.UploadOptions) (*fdp.FileMetadata, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	absPath, info, err := fs.Resolve(localPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, use import", absPath)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", absPath, err)
	}
	return a.files.Upload(ctx, s, podName, remotePath, data, opts)
}

// ImportResult counts what ImportDirectory created.
type ImportResult struct {
	Directories int
	Files       int
	Bytes       int64
}

// ImportDirectory uploads the tree under localDir into remoteDir of the
// pod. Missing remote directories, remoteDir included, are created
// parent-first; existing ones are reused. Files are uploaded one at a
// time; the first failure stops the import.
func (a *FDPApp) ImportDirectory(ctx context.Context, podName, localDir, remoteDir string) (*ImportResult, error) {
	s, pod, err := a.openPod(ctx, podName)
	if err != nil {
		return nil, err
	}
	if err := fdp.ValidateDirectoryPath(remoteDir); err != nil {
		return nil, err
	}
	root, info, err := fs.Resolve(localDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	entries, err := fs.Walk(root, a.cfg.Filesystem.Ignore)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	created, err := a.ensureDirs(ctx, s, pod, remoteDir)
	if err != nil {
		return result, err
	}
	result.Directories += created

	for _, e := range entries {
		remote := fdp.JoinPath(remoteDir, e.RelPath)
		if e.IsDir {
			created, err := a.ensureDirs(ctx, s, pod, remote)
			if err != nil {
				return result, err
			}
			result.Directories += created
			continue
		}

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(e.RelPath)))
		if err != nil {
			return result, fmt.Errorf("reading %s: %w", e.RelPath, err)
		}
		if _, err := a.files.Upload(ctx, s, podName, remote, data, nil); err != nil {
			return result, err
		}
		result.Files++
		result.Bytes += int64(len(data))
	}

	a.logger.Info("directory imported", "pod", podName, "local", root, "remote", remoteDir,
		"directories", result.Directories, "files", result.Files, "bytes", result.Bytes)
	return result, nil
}

// ensureDirs creates every missing directory on the way to dirPath and
// returns how many it created.
func (a *FDPApp) ensureDirs(ctx context.Context, s *fdp.Session, pod *fdp.Pod, dirPath string) (int, error) {
	if dirPath == fdp.RootPath {
		return 0, nil
	}
	created := 0
	current := fdp.RootPath
	for _, segment := range strings.Split(strings.TrimPrefix(dirPath, "/"), "/") {
		current = fdp.JoinPath(current, segment)
		_, err := a.dirs.Lookup(ctx, s, pod.Address(), current)
		if err == nil {
			continue
		}
		if !errors.Is(err, fdp.ErrNotFound) {
			return created, err
		}
		if err := a.dirs.Create(ctx, s, pod, current); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Download writes the remote file to localPath through a temp file in the
// same directory that is renamed into place once complete.
func (a *FDPApp) Download(ctx context.Context, podName, remotePath, localPath string) (int64, error) {
	s, err := a.requireSession()
	if err != nil {
		return 0, err
	}
	r, err := a.files.Download(ctx, s, podName, remotePath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".fdp-download-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("downloading %s: %w", remotePath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), absPath); err != nil {
		return 0, fmt.Errorf("moving download into place: %w", err)
	}

	a.logger.Info("file downloaded", "pod", podName, "path", remotePath, "local", absPath, "bytes", n)
	return n, nil
}

// Delete removes a file from the pod tree.
func (a *FDPApp) Delete(ctx context.Context, podName, remotePath string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return a.files.Delete(ctx, s, podName, remotePath)
}

// Stat returns the metadata of a file.
func (a *FDPApp) Stat(ctx context.Context, podName, remotePath string) (*fdp.FileMetadata, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.files.Stat(ctx, s, podName, remotePath)
}

// Share publishes a file's share descriptor and returns its reference.
func (a *FDPApp) Share(ctx context.Context, podName, remotePath string) (fdp.Reference, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.files.Share(ctx, s, podName, remotePath)
}

// SharedInfo decodes the share descriptor at the hex reference.
func (a *FDPApp) SharedInfo(ctx context.Context, ref string) (*fdp.ShareInfo, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	r, err := fdp.ParseReference(ref)
	if err != nil {
		return nil, err
	}
	return a.files.GetSharedInfo(ctx, s, r)
}

// SaveShared adds a shared file to dirPath of the pod.
func (a *FDPApp) SaveShared(ctx context.Context, ref, podName, dirPath, newName string) (*fdp.FileMetadata, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	r, err := fdp.ParseReference(ref)
	if err != nil {
		return nil, err
	}
	return a.files.SaveShared(ctx, s, r, podName, dirPath, newName)
}

// Fail marks the operation as failed before Close.
func (a *FDPApp) Fail(err error) {
	a.op.Finish(a.clock, err)
}

// Close finishes the operation and closes the vault and log file.
func (a *FDPApp) Close() error {
	var firstErr error

	a.op.Finish(a.clock, nil)
	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status, "duration", a.op.Duration().String())

	if err := closeVault(a.vault); err != nil {
		firstErr = fmt.Errorf("closing vault: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
