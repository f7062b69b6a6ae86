package fdp

import (
	"context"
	"io"
)

// Vault is the storage backend behind a node. Content is keyed by its hex
// content address; feed updates are keyed by slot and version.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// PutContent stores content under address. Storing the same address
	// twice is safe. size is the number of bytes that will be read from r.
	PutContent(ctx context.Context, address string, r io.Reader, size int64) error

	// GetContent writes the content stored under address to w. Missing
	// content returns an error wrapping ErrNotFound.
	GetContent(ctx context.Context, address string, w io.Writer) error

	// HasContent reports whether content is stored under address.
	HasContent(ctx context.Context, address string) (bool, error)

	// Pin marks stored content for indefinite retention. Pinning missing
	// content returns an error wrapping ErrNotFound.
	Pin(ctx context.Context, address string) error

	// IsPinned reports whether address has been pinned.
	IsPinned(ctx context.Context, address string) (bool, error)

	// PutFeedUpdate stores version of a feed slot. Writing an existing
	// version replaces it.
	PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error

	// GetFeedUpdate writes a stored version of a feed slot to w. A missing
	// version returns an error wrapping ErrNotFound.
	GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error

	// LatestFeedVersion returns the highest stored version of a slot, or 0
	// if the slot has never been written.
	LatestFeedVersion(ctx context.Context, slot string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
