// Package node implements the object store and feed primitive over a
// pluggable vault: content addressing, payload encryption, pinning,
// batch enforcement and signed feed updates.
package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"fdp-go/internal/encryption"
	"fdp-go/internal/fdp"
)

// ErrBatchRequired is returned for uploads without a payment batch ID.
var ErrBatchRequired = errors.New("postage batch id is required")

// ErrContentMismatch is returned when stored bytes do not hash to the
// address they were fetched by.
var ErrContentMismatch = errors.New("content does not match its address")

// Client is a fdp.Node backed by a fdp.Vault. It is safe for concurrent
// use as long as the vault is.
type Client struct {
	vault  fdp.Vault
	cache  *lru.Cache[string, []byte]
	logger fdp.Logger
}

var _ fdp.Node = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithCache keeps up to entries immutable objects in memory. Feed reads
// are never cached.
func WithCache(entries int) Option {
	return func(c *Client) error {
		if entries <= 0 {
			return nil
		}
		cache, err := lru.New[string, []byte](entries)
		if err != nil {
			return fmt.Errorf("creating object cache: %w", err)
		}
		c.cache = cache
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(l fdp.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// NewClient creates a Client over v.
func NewClient(v fdp.Vault, opts ...Option) (*Client, error) {
	c := &Client{vault: v, logger: fdp.NewNopLogger()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// UploadData stores payload and returns its reference. With Encrypt set,
// the payload is sealed under a fresh key and the reference is the
// address of the sealed bytes followed by that key.
func (c *Client) UploadData(ctx context.Context, batchID string, payload []byte, opts fdp.PutOptions) (fdp.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, ErrBatchRequired
	}

	data := payload
	var key []byte
	if opts.Encrypt {
		var err error
		key, data, err = encryption.SealObject(payload)
		if err != nil {
			return nil, fmt.Errorf("encrypting payload: %w", err)
		}
	}

	addr := fdp.ContentAddress(data)
	if err := c.vault.PutContent(ctx, addr.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("storing %s: %w", addr, err)
	}
	if opts.Pin {
		if err := c.vault.Pin(ctx, addr.String()); err != nil {
			return nil, fmt.Errorf("pinning %s: %w", addr, err)
		}
	}
	c.cachePut(addr, data)
	c.logger.Debug("object stored", "address", addr.String(), "size", len(data), "encrypted", opts.Encrypt, "batch", batchID)

	return append(addr, key...), nil
}

// DownloadData returns the payload behind ref, decrypting it when ref
// carries a key.
func (c *Client) DownloadData(ctx context.Context, ref fdp.Reference) ([]byte, error) {
	if len(ref) != fdp.ReferenceSize && len(ref) != fdp.EncryptedReferenceSize {
		return nil, fmt.Errorf("%w: invalid reference length %d", fdp.ErrValidation, len(ref))
	}
	data, err := c.object(ctx, ref.ContentAddress())
	if err != nil {
		return nil, err
	}
	if !ref.Encrypted() {
		return data, nil
	}
	plain, err := encryption.OpenObject(ref.Key(), data)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", ref.ContentAddress(), err)
	}
	return plain, nil
}

// DownloadChunk returns the raw bytes stored under a plain address.
func (c *Client) DownloadChunk(ctx context.Context, addr fdp.Reference) ([]byte, error) {
	if len(addr) != fdp.ReferenceSize {
		return nil, fmt.Errorf("%w: invalid chunk address length %d", fdp.ErrValidation, len(addr))
	}
	return c.object(ctx, addr)
}

// object fetches and verifies the bytes stored under addr.
func (c *Client) object(ctx context.Context, addr fdp.Reference) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := addr.String()
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return bytes.Clone(data), nil
		}
	}

	var buf bytes.Buffer
	if err := c.vault.GetContent(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	data := buf.Bytes()
	if !fdp.ContentAddress(data).Equal(addr) {
		return nil, fmt.Errorf("fetching %s: %w", key, ErrContentMismatch)
	}
	c.cachePut(addr, data)
	return data, nil
}

func (c *Client) cachePut(addr fdp.Reference, data []byte) {
	if c.cache != nil {
		c.cache.Add(addr.String(), bytes.Clone(data))
	}
}
