package fdp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Block is one uploaded slice of a file. Size is the exact length of the
// bytes behind Reference. CompressedSize always equals Size; compression
// is reserved.
type Block struct {
	Name           string    `json:"name"`
	Size           uint64    `json:"size"`
	CompressedSize uint64    `json:"compressedSize"`
	Reference      Reference `json:"reference"`
}

// BlockManifest is the ordered list of blocks that reconstitutes a file.
// A manifest is written once per upload and never changed.
type BlockManifest struct {
	Blocks []Block `json:"blocks"`
}

// Size returns the total content length described by the manifest.
func (m *BlockManifest) Size() uint64 {
	var n uint64
	for _, b := range m.Blocks {
		n += b.Size
	}
	return n
}

// EncodeManifest serializes m. A nil block list is encoded as [], and
// DecodeManifest always returns a non-nil list, so a decoded manifest
// equals its input with nil Blocks replaced by an empty slice.
func EncodeManifest(m *BlockManifest) ([]byte, error) {
	out := BlockManifest{Blocks: m.Blocks}
	if out.Blocks == nil {
		out.Blocks = []Block{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses an encoded manifest. Each block must carry a
// reference.
func DecodeManifest(data []byte) (*BlockManifest, error) {
	var m BlockManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %w", ErrConsistency, err)
	}
	if m.Blocks == nil {
		m.Blocks = []Block{}
	}
	for i, b := range m.Blocks {
		if len(b.Reference) == 0 {
			return nil, consistencyError("manifest block %d has no reference", i)
		}
	}
	return &m, nil
}

// UploadManifest stores the encoded manifest as an immutable object and
// returns its reference.
func UploadManifest(ctx context.Context, store ObjectStore, batchID string, m *BlockManifest) (Reference, error) {
	data, err := EncodeManifest(m)
	if err != nil {
		return nil, err
	}
	ref, err := store.UploadData(ctx, batchID, data, PutOptions{Pin: true, Encrypt: true})
	if err != nil {
		return nil, fmt.Errorf("uploading manifest: %w", err)
	}
	return ref, nil
}

// DownloadManifest fetches and decodes the manifest stored under ref.
func DownloadManifest(ctx context.Context, store ObjectStore, ref Reference) (*BlockManifest, error) {
	data, err := store.DownloadData(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("downloading manifest %s: %w", ref, err)
	}
	return DecodeManifest(data)
}
