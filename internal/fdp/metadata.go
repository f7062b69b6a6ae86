package fdp

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// MetaVersion tags every metadata record written by this package.
const MetaVersion = 2

const (
	fileEntryPrefix      = "_F_"
	directoryEntryPrefix = "_D_"
)

// Record is a decoded feed record: either *FileMetadata or *DirectoryRecord.
// The variant is fixed by DecodeRecord, so callers switch on the type
// instead of inspecting fields.
type Record interface {
	isRecord()
}

// FileMetadata describes one file. It lives in the feed slot
// (OwnerAddress, topic = full path). Times are unix seconds.
type FileMetadata struct {
	Version          int       `json:"version"`
	OwnerAddress     Address   `json:"ownerAddress"`
	PodName          string    `json:"podName"`
	FilePath         string    `json:"filePath"`
	FileName         string    `json:"fileName"`
	FileSize         uint64    `json:"fileSize"`
	BlockSize        uint32    `json:"blockSize"`
	ContentType      string    `json:"contentType"`
	Compression      string    `json:"compression"`
	CreationTime     int64     `json:"creationTime"`
	AccessTime       int64     `json:"accessTime"`
	ModificationTime int64     `json:"modificationTime"`
	BlocksReference  Reference `json:"blocksReference"`
}

func (*FileMetadata) isRecord() {}

// FullPath returns the path the metadata is stored under.
func (m *FileMetadata) FullPath() string { return JoinPath(m.FilePath, m.FileName) }

func (m *FileMetadata) validate() error {
	switch {
	case m.Version <= 0:
		return consistencyError("file record has no version")
	case m.FileName == "":
		return consistencyError("file record has no file name")
	case !strings.HasPrefix(m.FilePath, "/"):
		return consistencyError("file record has invalid path %q", m.FilePath)
	case len(m.BlocksReference) == 0:
		return consistencyError("file record %s has no blocks reference", m.FileName)
	}
	return nil
}

// DirectoryMetadata describes a directory. The root has Path "/" and an
// empty Name.
type DirectoryMetadata struct {
	Version          int    `json:"version"`
	Path             string `json:"path"`
	Name             string `json:"name"`
	CreationTime     int64  `json:"creationTime"`
	AccessTime       int64  `json:"accessTime"`
	ModificationTime int64  `json:"modificationTime"`
}

// DirectoryRecord is the feed-backed entry list of a directory. Entries
// are prefixed "_F_" for files and "_D_" for sub-directories.
type DirectoryRecord struct {
	Meta           DirectoryMetadata `json:"meta"`
	FileOrDirNames []string          `json:"fileOrDirNames"`
}

func (*DirectoryRecord) isRecord() {}

// newDirectoryRecord creates an empty directory record for dir/name.
func newDirectoryRecord(dir, name string, now int64) *DirectoryRecord {
	return &DirectoryRecord{
		Meta: DirectoryMetadata{
			Version:          MetaVersion,
			Path:             dir,
			Name:             name,
			CreationTime:     now,
			AccessTime:       now,
			ModificationTime: now,
		},
		FileOrDirNames: []string{},
	}
}

func entryName(name string, isFile bool) string {
	if isFile {
		return fileEntryPrefix + name
	}
	return directoryEntryPrefix + name
}

// HasEntry reports whether the directory lists name as a file (isFile)
// or as a sub-directory.
func (d *DirectoryRecord) HasEntry(name string, isFile bool) bool {
	return slices.Contains(d.FileOrDirNames, entryName(name, isFile))
}

// Files returns the names of the files in entry order.
func (d *DirectoryRecord) Files() []string { return d.entries(fileEntryPrefix) }

// Directories returns the names of the sub-directories in entry order.
func (d *DirectoryRecord) Directories() []string { return d.entries(directoryEntryPrefix) }

func (d *DirectoryRecord) entries(prefix string) []string {
	names := []string{}
	for _, e := range d.FileOrDirNames {
		if name, ok := strings.CutPrefix(e, prefix); ok {
			names = append(names, name)
		}
	}
	return names
}

func (d *DirectoryRecord) validate() error {
	if d.Meta.Version <= 0 {
		return consistencyError("directory record has no version")
	}
	for _, e := range d.FileOrDirNames {
		if !strings.HasPrefix(e, fileEntryPrefix) && !strings.HasPrefix(e, directoryEntryPrefix) {
			return consistencyError("directory record has malformed entry %q", e)
		}
	}
	return nil
}

// EncodeRecord serializes a file or directory record.
func EncodeRecord(r Record) ([]byte, error) {
	if d, ok := r.(*DirectoryRecord); ok && d.FileOrDirNames == nil {
		c := *d
		c.FileOrDirNames = []string{}
		r = &c
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

// DecodeRecord decodes a feed payload into its variant. A payload that
// is neither a well-formed file record nor a well-formed directory record
// is a consistency error.
func DecodeRecord(data []byte) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: decoding record: %w", ErrConsistency, err)
	}

	_, hasMeta := fields["meta"]
	_, hasEntries := fields["fileOrDirNames"]
	_, hasBlocks := fields["blocksReference"]

	switch {
	case hasMeta && hasEntries:
		var d DirectoryRecord
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("%w: decoding directory record: %w", ErrConsistency, err)
		}
		if d.FileOrDirNames == nil {
			d.FileOrDirNames = []string{}
		}
		if err := d.validate(); err != nil {
			return nil, err
		}
		return &d, nil
	case hasBlocks:
		var m FileMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decoding file record: %w", ErrConsistency, err)
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, consistencyError("record is neither a file nor a directory")
	}
}

// DecodeFileMetadata decodes data and requires a file record.
func DecodeFileMetadata(data []byte) (*FileMetadata, error) {
	r, err := DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	switch r := r.(type) {
	case *FileMetadata:
		return r, nil
	case *DirectoryRecord:
		return nil, consistencyError("expected a file record, found directory %q", JoinPath(r.Meta.Path, r.Meta.Name))
	default:
		return nil, consistencyError("unexpected record type %T", r)
	}
}

// DecodeDirectoryRecord decodes data and requires a directory record.
func DecodeDirectoryRecord(data []byte) (*DirectoryRecord, error) {
	r, err := DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	switch r := r.(type) {
	case *DirectoryRecord:
		return r, nil
	case *FileMetadata:
		return nil, consistencyError("expected a directory record, found file %q", r.FullPath())
	default:
		return nil, consistencyError("unexpected record type %T", r)
	}
}
