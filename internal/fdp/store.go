package fdp

import (
	"context"
	"crypto/ed25519"
)

// PutOptions are the flags passed with every object upload.
type PutOptions struct {
	// Pin asks the store to retain the object indefinitely.
	Pin bool
	// Encrypt asks the store to encrypt the payload. The returned reference
	// then carries the decryption key.
	Encrypt bool
}

// ObjectStore is the content-addressed object store client.
type ObjectStore interface {
	// UploadData stores payload and returns its reference. Every upload
	// must carry a valid payment batch ID.
	UploadData(ctx context.Context, batchID string, payload []byte, opts PutOptions) (Reference, error)

	// DownloadData returns the payload stored under ref, decrypting it
	// when ref carries a key.
	DownloadData(ctx context.Context, ref Reference) ([]byte, error)

	// DownloadChunk returns the raw bytes stored under a plain address.
	DownloadChunk(ctx context.Context, addr Reference) ([]byte, error)
}

// FeedUpdate is the latest value of a feed slot.
type FeedUpdate struct {
	Reference Reference
	Payload   []byte
}

// FeedClient is the feed primitive: owner-signed, store-versioned slots
// identified by (owner, topic).
type FeedClient interface {
	// GetFeedData returns the latest update of the slot. A slot that was
	// never written returns an error wrapping ErrNotFound.
	GetFeedData(ctx context.Context, owner Address, topic string) (*FeedUpdate, error)

	// WriteFeedData appends a new version to the slot owned by the address
	// of key and returns the reference of the update.
	WriteFeedData(ctx context.Context, batchID string, topic string, payload []byte, key ed25519.PrivateKey) (Reference, error)
}

// Node is a connection that provides both collaborators. Implementations
// must be safe for concurrent use.
type Node interface {
	ObjectStore
	FeedClient
}
