package testutil

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"fdp-go/internal/fdp"
)

// CountingNode wraps a fdp.Node, counting uploads and feed writes and
// optionally failing them.
type CountingNode struct {
	fdp.Node

	mu         sync.Mutex
	uploads    int
	feedWrites int
	topics     []string

	// FailUploadsAfter makes every upload after the first n fail with
	// UploadErr. Negative disables.
	FailUploadsAfter int
	UploadErr        error

	// FailFeedWrites makes WriteFeedData fail with FeedErr.
	FailFeedWrites bool
	FeedErr        error

	// FeedReadDelay is slept before every GetFeedData, widening the window
	// between a read and the write that follows it.
	FeedReadDelay time.Duration
}

// NewCountingNode wraps n with failures disabled.
func NewCountingNode(n fdp.Node) *CountingNode {
	return &CountingNode{Node: n, FailUploadsAfter: -1}
}

func (c *CountingNode) UploadData(ctx context.Context, batchID string, payload []byte, opts fdp.PutOptions) (fdp.Reference, error) {
	c.mu.Lock()
	fail := c.FailUploadsAfter >= 0 && c.uploads >= c.FailUploadsAfter
	c.uploads++
	c.mu.Unlock()
	if fail {
		return nil, c.UploadErr
	}
	return c.Node.UploadData(ctx, batchID, payload, opts)
}

func (c *CountingNode) WriteFeedData(ctx context.Context, batchID string, topic string, payload []byte, key ed25519.PrivateKey) (fdp.Reference, error) {
	c.mu.Lock()
	c.feedWrites++
	c.topics = append(c.topics, topic)
	fail := c.FailFeedWrites
	c.mu.Unlock()
	if fail {
		return nil, c.FeedErr
	}
	return c.Node.WriteFeedData(ctx, batchID, topic, payload, key)
}

func (c *CountingNode) GetFeedData(ctx context.Context, owner fdp.Address, topic string) (*fdp.FeedUpdate, error) {
	c.mu.Lock()
	delay := c.FeedReadDelay
	c.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.Node.GetFeedData(ctx, owner, topic)
}

// SetFeedReadDelay sets FeedReadDelay while other goroutines may be reading it.
func (c *CountingNode) SetFeedReadDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FeedReadDelay = d
}

// Uploads returns the number of UploadData calls.
func (c *CountingNode) Uploads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

// FeedWrites returns the number of WriteFeedData calls.
func (c *CountingNode) FeedWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedWrites
}

// Topics returns the topics written, in call order.
func (c *CountingNode) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

// Reset zeroes the counters.
func (c *CountingNode) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads, c.feedWrites, c.topics = 0, 0, nil
}
