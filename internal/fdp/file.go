package fdp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/imdario/mergo"
)

// UploadOptions tune a file upload. Zero fields take the manager's defaults.
type UploadOptions struct {
	BlockSize   int
	ContentType string
	// Concurrency bounds parallel block uploads.
	Concurrency int
}

// DefaultUploadOptions returns a block size of 1000000 bytes, an empty
// content type and four parallel block uploads.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		BlockSize:   1000000,
		ContentType: "",
		Concurrency: 4,
	}
}

// FileManager uploads, downloads, deletes and shares files in pods.
//
// Upload is a durability pipeline with a fixed order: block content,
// then the manifest, then the metadata feed write, then the directory
// entry. Each step starts only after the previous one succeeded, so an
// entry always has metadata and metadata always has content. Two uploads
// to the same path race at the metadata write and the last writer wins.
type FileManager struct {
	pods     *PodManager
	dirs     *DirectoryIndex
	clock    Clock
	logger   Logger
	defaults UploadOptions
}

func NewFileManager(pods *PodManager, dirs *DirectoryIndex, clock Clock, logger Logger, defaults UploadOptions) *FileManager {
	return &FileManager{
		pods:     pods,
		dirs:     dirs,
		clock:    clock,
		logger:   logger,
		defaults: defaults,
	}
}

func (m *FileManager) mergeOptions(opts *UploadOptions) (UploadOptions, error) {
	var merged UploadOptions
	if opts != nil {
		merged = *opts
	}
	if err := mergo.Merge(&merged, m.defaults); err != nil {
		return merged, fmt.Errorf("merging upload options: %w", err)
	}
	if merged.BlockSize <= 0 {
		return merged, validationError("block size must be positive, got %d", merged.BlockSize)
	}
	// metadata stores the block size as uint32
	if uint64(merged.BlockSize) > math.MaxUint32 {
		return merged, validationError("block size %d exceeds %d", merged.BlockSize, uint64(math.MaxUint32))
	}
	return merged, nil
}

// Upload stores data at fullPath in the pod and returns the new metadata.
// All three timestamps are set to now, also when overwriting: original
// creation times are not preserved.
func (m *FileManager) Upload(ctx context.Context, s *Session, podName, fullPath string, data []byte, opts *UploadOptions) (*FileMetadata, error) {
	if err := ValidatePodName(podName); err != nil {
		return nil, err
	}
	dir, name, err := DecomposePath(fullPath)
	if err != nil {
		return nil, err
	}
	o, err := m.mergeOptions(opts)
	if err != nil {
		return nil, err
	}

	pod, err := m.pods.Open(ctx, s, podName)
	if err != nil {
		return nil, err
	}
	parent, err := m.dirs.readParent(ctx, s, pod.Address(), dir)
	if err != nil {
		return nil, err
	}
	if parent.HasEntry(name, false) {
		return nil, validationError("%s is a directory", fullPath)
	}

	manifest, err := UploadBlocks(ctx, s.Store, s.BatchID, data, o.BlockSize, o.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("uploading content of %s: %w", fullPath, err)
	}
	m.logger.Debug("blocks uploaded", "path", fullPath, "blocks", len(manifest.Blocks))

	blocksRef, err := UploadManifest(ctx, s.Store, s.BatchID, manifest)
	if err != nil {
		return nil, err
	}

	now := unixNow(m.clock)
	meta := &FileMetadata{
		Version:          MetaVersion,
		OwnerAddress:     pod.Address(),
		PodName:          podName,
		FilePath:         dir,
		FileName:         name,
		FileSize:         uint64(len(data)),
		BlockSize:        uint32(o.BlockSize),
		ContentType:      o.ContentType,
		Compression:      "",
		CreationTime:     now,
		AccessTime:       now,
		ModificationTime: now,
		BlocksReference:  blocksRef,
	}
	if err := m.writeMetadata(ctx, s, pod, meta); err != nil {
		return nil, err
	}
	if err := m.dirs.AddEntry(ctx, s, pod.Wallet, dir, name, true); err != nil {
		return nil, err
	}

	m.logger.Info("file uploaded", "pod", podName, "path", fullPath, "size", meta.FileSize, "blocks", len(manifest.Blocks))
	return meta, nil
}

func (m *FileManager) writeMetadata(ctx context.Context, s *Session, pod *Pod, meta *FileMetadata) error {
	payload, err := EncodeRecord(meta)
	if err != nil {
		return err
	}
	if _, err := s.Feeds.Write(ctx, meta.FullPath(), payload, pod.Wallet.PrivateKey()); err != nil {
		return fmt.Errorf("writing metadata of %s: %w", meta.FullPath(), err)
	}
	return nil
}

// readFileMetadata resolves fullPath through its parent's entries and
// requires the record found there to be a file.
func (m *FileManager) readFileMetadata(ctx context.Context, s *Session, podName, fullPath string) (*Pod, *FileMetadata, error) {
	if err := ValidatePodName(podName); err != nil {
		return nil, nil, err
	}
	dir, name, err := DecomposePath(fullPath)
	if err != nil {
		return nil, nil, err
	}
	pod, err := m.pods.Open(ctx, s, podName)
	if err != nil {
		return nil, nil, err
	}
	parent, err := m.dirs.readParent(ctx, s, pod.Address(), dir)
	if err != nil {
		return nil, nil, err
	}
	if !parent.HasEntry(name, true) && !parent.HasEntry(name, false) {
		return nil, nil, fmt.Errorf("%s: %w", fullPath, ErrNotFound)
	}

	payload, err := s.Feeds.Read(ctx, pod.Address(), fullPath)
	if err != nil {
		return nil, nil, err
	}
	meta, err := DecodeFileMetadata(payload)
	if err != nil {
		m.logger.Warn("unexpected record", "pod", podName, "path", fullPath, "error", err)
		return nil, nil, fmt.Errorf("reading metadata of %s: %w", fullPath, err)
	}
	return pod, meta, nil
}

// Stat returns the current metadata of a file.
func (m *FileManager) Stat(ctx context.Context, s *Session, podName, fullPath string) (*FileMetadata, error) {
	_, meta, err := m.readFileMetadata(ctx, s, podName, fullPath)
	return meta, err
}

// Download returns a lazy reader over the file content. Blocks are
// fetched one at a time in manifest order as the reader is drained; any
// fetch or size failure ends the stream with that error. The reader
// cannot be rewound.
func (m *FileManager) Download(ctx context.Context, s *Session, podName, fullPath string) (io.ReadCloser, error) {
	_, meta, err := m.readFileMetadata(ctx, s, podName, fullPath)
	if err != nil {
		return nil, err
	}
	manifest, err := DownloadManifest(ctx, s.Store, meta.BlocksReference)
	if err != nil {
		return nil, err
	}
	if manifest.Size() != meta.FileSize {
		return nil, consistencyError("manifest of %s holds %d bytes, metadata says %d", fullPath, manifest.Size(), meta.FileSize)
	}
	m.logger.Debug("download started", "pod", podName, "path", fullPath, "blocks", len(manifest.Blocks))
	return newBlockReader(ctx, s.Store, manifest.Blocks), nil
}

// DownloadData reads the whole file into memory.
func (m *FileManager) DownloadData(ctx context.Context, s *Session, podName, fullPath string) ([]byte, error) {
	r, err := m.Download(ctx, s, podName, fullPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fullPath, err)
	}
	return data, nil
}

// Delete removes the file's directory entry. The metadata feed keeps its
// history; the file is simply no longer reachable from the tree.
func (m *FileManager) Delete(ctx context.Context, s *Session, podName, fullPath string) error {
	if err := ValidatePodName(podName); err != nil {
		return err
	}
	dir, name, err := DecomposePath(fullPath)
	if err != nil {
		return err
	}
	pod, err := m.pods.Open(ctx, s, podName)
	if err != nil {
		return err
	}
	if err := m.dirs.RemoveEntry(ctx, s, pod.Wallet, dir, name, true); err != nil {
		return err
	}

	m.logger.Info("file deleted", "pod", podName, "path", fullPath)
	return nil
}

// Share uploads a ShareInfo for the file and returns its reference. A
// record that is not a well-formed file fails with ErrConsistency before
// anything is uploaded.
func (m *FileManager) Share(ctx context.Context, s *Session, podName, fullPath string) (Reference, error) {
	pod, meta, err := m.readFileMetadata(ctx, s, podName, fullPath)
	if err != nil {
		return nil, err
	}

	data, err := EncodeShareInfo(NewShareInfo(meta, pod.Address()))
	if err != nil {
		return nil, err
	}
	ref, err := s.Store.UploadData(ctx, s.BatchID, data, PutOptions{Pin: true, Encrypt: true})
	if err != nil {
		return nil, fmt.Errorf("uploading share info of %s: %w", fullPath, err)
	}

	m.logger.Info("file shared", "pod", podName, "path", fullPath, "reference", ref.String())
	return ref, nil
}

// GetSharedInfo downloads and decodes the share descriptor at ref.
func (m *FileManager) GetSharedInfo(ctx context.Context, s *Session, ref Reference) (*ShareInfo, error) {
	data, err := s.Store.DownloadData(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("downloading share info %s: %w", ref, err)
	}
	return DecodeShareInfo(data)
}

// SaveShared adds the file shared at ref to dirPath of the pod, under
// newName or its original name. Only metadata is written; the content is
// referenced, not copied.
func (m *FileManager) SaveShared(ctx context.Context, s *Session, ref Reference, podName, dirPath, newName string) (*FileMetadata, error) {
	if err := ValidatePodName(podName); err != nil {
		return nil, err
	}
	if err := ValidateDirectoryPath(dirPath); err != nil {
		return nil, err
	}
	info, err := m.GetSharedInfo(ctx, s, ref)
	if err != nil {
		return nil, err
	}
	name := newName
	if name == "" {
		name = info.Meta.FileName
	}
	fullPath := JoinPath(dirPath, name)
	if err := ValidatePath(fullPath); err != nil {
		return nil, err
	}

	pod, err := m.pods.Open(ctx, s, podName)
	if err != nil {
		return nil, err
	}
	parent, err := m.dirs.readParent(ctx, s, pod.Address(), dirPath)
	if err != nil {
		return nil, err
	}
	if parent.HasEntry(name, false) {
		return nil, validationError("%s is a directory", fullPath)
	}

	meta := info.Meta
	meta.OwnerAddress = pod.Address()
	meta.PodName = podName
	meta.FilePath = dirPath
	meta.FileName = name
	meta.AccessTime = unixNow(m.clock)
	if err := m.writeMetadata(ctx, s, pod, &meta); err != nil {
		return nil, err
	}
	if err := m.dirs.AddEntry(ctx, s, pod.Wallet, dirPath, name, true); err != nil {
		return nil, err
	}

	m.logger.Info("shared file saved", "pod", podName, "path", fullPath, "source", info.SourceAddress)
	return &meta, nil
}

var errReaderClosed = errors.New("block reader closed")

// blockReader streams blocks in order, fetching each one on demand.
type blockReader struct {
	ctx    context.Context
	store  ObjectStore
	blocks []Block
	next   int
	buf    []byte
	err    error
}

func newBlockReader(ctx context.Context, store ObjectStore, blocks []Block) *blockReader {
	return &blockReader{ctx: ctx, store: store, blocks: blocks}
}

func (r *blockReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.next >= len(r.blocks) {
			r.err = io.EOF
			return 0, io.EOF
		}
		b := r.blocks[r.next]
		r.next++

		data, err := r.store.DownloadData(r.ctx, b.Reference)
		if err != nil {
			r.err = fmt.Errorf("downloading %s: %w", b.Name, err)
			return 0, r.err
		}
		if uint64(len(data)) != b.Size {
			r.err = consistencyError("%s has %d bytes, manifest says %d", b.Name, len(data), b.Size)
			return 0, r.err
		}
		r.buf = data
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *blockReader) Close() error {
	r.buf = nil
	if r.err == nil || r.err == io.EOF {
		r.err = errReaderClosed
	}
	return nil
}
