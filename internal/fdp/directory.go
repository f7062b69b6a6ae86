package fdp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DirectoryIndex maintains the feed-backed entry lists that make paths
// discoverable. A directory's record lives at topic = its full path in the
// pod owner's feeds.
//
// Entries follow the child: an entry is added only after the child's own
// record is written, and removed before anything else is touched, so a
// reader never sees an entry without a record.
//
// Entry changes to one directory are serialized within this index, so
// concurrent uploads of different files keep every sibling entry. Writers
// in other processes are not coordinated with.
type DirectoryIndex struct {
	clock  Clock
	logger Logger
	locks  entryLocks
}

func NewDirectoryIndex(clock Clock, logger Logger) *DirectoryIndex {
	return &DirectoryIndex{clock: clock, logger: logger}
}

// Read returns the record stored in the slot of dirPath. It does not check
// that the directory is still linked into the tree; use Lookup for that.
func (d *DirectoryIndex) Read(ctx context.Context, s *Session, owner Address, dirPath string) (*DirectoryRecord, error) {
	if err := ValidateDirectoryPath(dirPath); err != nil {
		return nil, err
	}
	payload, err := s.Feeds.Read(ctx, owner, dirPath)
	if err != nil {
		return nil, err
	}
	return DecodeDirectoryRecord(payload)
}

// Lookup returns the record of dirPath if the directory is reachable: every
// ancestor, starting at the root, must list the next segment as a
// sub-directory. A removed directory is not found even though its slot
// still decodes.
func (d *DirectoryIndex) Lookup(ctx context.Context, s *Session, owner Address, dirPath string) (*DirectoryRecord, error) {
	if err := ValidateDirectoryPath(dirPath); err != nil {
		return nil, err
	}
	rec, err := d.Read(ctx, s, owner, RootPath)
	if err != nil || dirPath == RootPath {
		return rec, err
	}

	current := RootPath
	for _, name := range strings.Split(dirPath[1:], "/") {
		if !rec.HasEntry(name, false) {
			return nil, fmt.Errorf("directory %s: %w", JoinPath(current, name), ErrNotFound)
		}
		current = JoinPath(current, name)
		if rec, err = d.Read(ctx, s, owner, current); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// readParent is Lookup with a not-found error that names the missing parent.
func (d *DirectoryIndex) readParent(ctx context.Context, s *Session, owner Address, dirPath string) (*DirectoryRecord, error) {
	rec, err := d.Lookup(ctx, s, owner, dirPath)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("parent directory %s does not exist: %w", dirPath, err)
	}
	return rec, err
}

func (d *DirectoryIndex) write(ctx context.Context, s *Session, podWallet *Wallet, dirPath string, rec *DirectoryRecord) error {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := s.Feeds.Write(ctx, dirPath, payload, podWallet.PrivateKey()); err != nil {
		return fmt.Errorf("writing directory %s: %w", dirPath, err)
	}
	return nil
}

// AddEntry records name under dirPath in the directory owned by
// podWallet. The directory must exist. Adding an entry that is already
// present leaves the record untouched.
func (d *DirectoryIndex) AddEntry(ctx context.Context, s *Session, podWallet *Wallet, dirPath, name string, isFile bool) error {
	if name == "" {
		return validationError("entry name is empty")
	}
	defer d.locks.lock(podWallet.Address(), dirPath)()

	rec, err := d.readParent(ctx, s, podWallet.Address(), dirPath)
	if err != nil {
		return err
	}

	entry := entryName(name, isFile)
	if slices.Contains(rec.FileOrDirNames, entry) {
		d.logger.Debug("directory entry already present", "dir", dirPath, "entry", entry)
		return nil
	}

	now := unixNow(d.clock)
	rec.FileOrDirNames = append(rec.FileOrDirNames, entry)
	rec.Meta.AccessTime = now
	rec.Meta.ModificationTime = now
	if err := d.write(ctx, s, podWallet, dirPath, rec); err != nil {
		return err
	}

	d.logger.Info("directory entry added", "dir", dirPath, "entry", entry)
	return nil
}

// RemoveEntry removes name from dirPath. Removing an absent entry is a
// not-found error.
func (d *DirectoryIndex) RemoveEntry(ctx context.Context, s *Session, podWallet *Wallet, dirPath, name string, isFile bool) error {
	defer d.locks.lock(podWallet.Address(), dirPath)()

	rec, err := d.readParent(ctx, s, podWallet.Address(), dirPath)
	if err != nil {
		return err
	}

	entry := entryName(name, isFile)
	i := slices.Index(rec.FileOrDirNames, entry)
	if i < 0 {
		return fmt.Errorf("%s not found in %s: %w", name, dirPath, ErrNotFound)
	}

	now := unixNow(d.clock)
	rec.FileOrDirNames = slices.Delete(rec.FileOrDirNames, i, i+1)
	rec.Meta.AccessTime = now
	rec.Meta.ModificationTime = now
	if err := d.write(ctx, s, podWallet, dirPath, rec); err != nil {
		return err
	}

	d.logger.Info("directory entry removed", "dir", dirPath, "entry", entry)
	return nil
}

// CreateRoot writes the empty root directory of a pod.
func (d *DirectoryIndex) CreateRoot(ctx context.Context, s *Session, podWallet *Wallet) error {
	rec := newDirectoryRecord(RootPath, "", unixNow(d.clock))
	return d.write(ctx, s, podWallet, RootPath, rec)
}

// Create makes the directory fullPath in pod. The parent must exist and
// must not already hold a file or directory of the same name. The new
// record is written before the parent entry.
func (d *DirectoryIndex) Create(ctx context.Context, s *Session, pod *Pod, fullPath string) error {
	dir, name, err := DecomposePath(fullPath)
	if err != nil {
		return err
	}
	parent, err := d.readParent(ctx, s, pod.Address(), dir)
	if err != nil {
		return err
	}
	if parent.HasEntry(name, true) {
		return validationError("a file named %q already exists in %s", name, dir)
	}
	if parent.HasEntry(name, false) {
		return validationError("directory %s already exists", fullPath)
	}

	rec := newDirectoryRecord(dir, name, unixNow(d.clock))
	if err := d.write(ctx, s, pod.Wallet, fullPath, rec); err != nil {
		return err
	}
	if err := d.AddEntry(ctx, s, pod.Wallet, dir, name, false); err != nil {
		return err
	}

	d.logger.Info("directory created", "pod", pod.Name, "path", fullPath)
	return nil
}

// Delete removes the empty directory fullPath from its parent. The
// record itself stays in the feed history.
func (d *DirectoryIndex) Delete(ctx context.Context, s *Session, pod *Pod, fullPath string) error {
	if fullPath == RootPath {
		return validationError("cannot remove the root directory")
	}
	dir, name, err := DecomposePath(fullPath)
	if err != nil {
		return err
	}
	rec, err := d.Lookup(ctx, s, pod.Address(), fullPath)
	if err != nil {
		return err
	}
	if len(rec.FileOrDirNames) > 0 {
		return validationError("directory %s is not empty", fullPath)
	}
	if err := d.RemoveEntry(ctx, s, pod.Wallet, dir, name, false); err != nil {
		return err
	}

	d.logger.Info("directory removed", "pod", pod.Name, "path", fullPath)
	return nil
}

// DirectoryListing is the content of one directory.
type DirectoryListing struct {
	Path        string
	Files       []string
	Directories []string
}

// List returns the files and sub-directories of dirPath in pod.
func (d *DirectoryIndex) List(ctx context.Context, s *Session, pod *Pod, dirPath string) (*DirectoryListing, error) {
	rec, err := d.Lookup(ctx, s, pod.Address(), dirPath)
	if err != nil {
		return nil, err
	}
	return &DirectoryListing{
		Path:        dirPath,
		Files:       rec.Files(),
		Directories: rec.Directories(),
	}, nil
}

// entryLocks hands out one mutex per (owner, directory). A mutex is
// dropped from the map once nobody holds or waits for it.
type entryLocks struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex of dirPath in owner's tree and returns its release.
func (l *entryLocks) lock(owner Address, dirPath string) func() {
	key := owner.String() + dirPath

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entryLock)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &entryLock{}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
