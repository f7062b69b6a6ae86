package fdp

import (
	"encoding/json"
	"fmt"
)

// ShareInfo is a self-contained descriptor of a shared file: its metadata
// plus the address that owns it. It is uploaded once as an immutable
// object and handed to the recipient by reference.
type ShareInfo struct {
	Meta          FileMetadata `json:"meta"`
	SourceAddress string       `json:"source_address"`
}

// NewShareInfo packages metadata for sharing. It does no I/O.
func NewShareInfo(meta *FileMetadata, owner Address) *ShareInfo {
	return &ShareInfo{
		Meta:          *meta,
		SourceAddress: owner.String(),
	}
}

// Source returns the parsed owner address.
func (s *ShareInfo) Source() (Address, error) {
	return ParseAddress(s.SourceAddress)
}

// DecodeShareInfo parses a share descriptor; its meta must be a
// well-formed file record.
func DecodeShareInfo(data []byte) (*ShareInfo, error) {
	var raw struct {
		Meta          json.RawMessage `json:"meta"`
		SourceAddress string          `json:"source_address"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding share info: %w", ErrConsistency, err)
	}
	if len(raw.Meta) == 0 {
		return nil, consistencyError("share info has no metadata")
	}
	meta, err := DecodeFileMetadata(raw.Meta)
	if err != nil {
		return nil, fmt.Errorf("decoding shared metadata: %w", err)
	}
	if _, err := ParseAddress(raw.SourceAddress); err != nil {
		return nil, fmt.Errorf("%w: share info source address: %w", ErrConsistency, err)
	}
	return &ShareInfo{Meta: *meta, SourceAddress: raw.SourceAddress}, nil
}

// EncodeShareInfo serializes a share descriptor.
func EncodeShareInfo(info *ShareInfo) ([]byte, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding share info: %w", err)
	}
	return data, nil
}
