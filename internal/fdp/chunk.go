package fdp

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// BlockName returns the manifest name of the block at index i.
func BlockName(i int) string {
	return "block-" + strconv.Itoa(i)
}

// BlockCount returns how many blocks SplitBlocks yields for size bytes.
func BlockCount(size, blockSize int) int {
	if size == 0 {
		return 1
	}
	return (size + blockSize - 1) / blockSize
}

// SplitBlocks lazily yields data in blockSize pieces together with their
// index. Every piece is blockSize long except possibly the last. Empty
// data yields exactly one empty block, so every file has a manifest
// entry. blockSize must be positive.
func SplitBlocks(data []byte, blockSize int) iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		if len(data) == 0 {
			yield(0, []byte{})
			return
		}
		for i, off := 0, 0; off < len(data); i, off = i+1, off+blockSize {
			end := min(off+blockSize, len(data))
			if !yield(i, data[off:end:end]) {
				return
			}
		}
	}
}

// UploadBlock stores one block, pinned and encrypted.
func UploadBlock(ctx context.Context, store ObjectStore, batchID string, index int, data []byte) (Block, error) {
	name := BlockName(index)
	ref, err := store.UploadData(ctx, batchID, data, PutOptions{Pin: true, Encrypt: true})
	if err != nil {
		return Block{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	return Block{
		Name:           name,
		Size:           uint64(len(data)),
		CompressedSize: uint64(len(data)),
		Reference:      ref,
	}, nil
}

// UploadBlocks uploads every block of data with at most concurrency
// uploads in flight (unbounded when concurrency <= 0) and returns the
// manifest in block order. The first failure cancels the remaining
// uploads and fails the whole call; blocks already stored are left as
// unreferenced content.
func UploadBlocks(ctx context.Context, store ObjectStore, batchID string, data []byte, blockSize, concurrency int) (*BlockManifest, error) {
	if blockSize <= 0 {
		return nil, validationError("block size must be positive, got %d", blockSize)
	}

	blocks := make([]Block, BlockCount(len(data), blockSize))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, chunk := range SplitBlocks(data, blockSize) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := UploadBlock(gctx, store, batchID, i, chunk)
			if err != nil {
				return err
			}
			blocks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &BlockManifest{Blocks: blocks}, nil
}
