package fdp

import (
	"context"
	"crypto/ed25519"
	"fmt"
)

// FeedStore reads and writes the latest payload of (owner, topic) feeds.
// It serves every feed usage of the layer: file metadata, directory
// records, the pod list and account secrets. It keeps no version counter;
// the store orders writes, and concurrent writers to one slot race with
// last-writer-wins.
type FeedStore struct {
	client  FeedClient
	batchID string
}

// NewFeedStore creates a FeedStore that signs writes under batchID.
// An empty batchID is allowed for read-only use.
func NewFeedStore(client FeedClient, batchID string) *FeedStore {
	return &FeedStore{client: client, batchID: batchID}
}

// Read returns the latest payload of the slot. A slot that was never
// written returns an error wrapping ErrNotFound; an empty payload is a
// valid value.
func (f *FeedStore) Read(ctx context.Context, owner Address, topic string) ([]byte, error) {
	update, err := f.ReadUpdate(ctx, owner, topic)
	if err != nil {
		return nil, err
	}
	return update.Payload, nil
}

// ReadUpdate is Read that also returns the reference of the update.
func (f *FeedStore) ReadUpdate(ctx context.Context, owner Address, topic string) (*FeedUpdate, error) {
	if topic == "" {
		return nil, validationError("feed topic is empty")
	}
	update, err := f.client.GetFeedData(ctx, owner, topic)
	if err != nil {
		return nil, fmt.Errorf("reading feed %q of %s: %w", topic, owner, err)
	}
	return update, nil
}

// Write publishes payload as the new latest value of the slot owned by
// key's address and returns the reference of the update.
func (f *FeedStore) Write(ctx context.Context, topic string, payload []byte, key ed25519.PrivateKey) (Reference, error) {
	if topic == "" {
		return nil, validationError("feed topic is empty")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, validationError("invalid signing key length %d", len(key))
	}
	ref, err := f.client.WriteFeedData(ctx, f.batchID, topic, payload, key)
	if err != nil {
		return nil, fmt.Errorf("writing feed %q: %w", topic, err)
	}
	return ref, nil
}
