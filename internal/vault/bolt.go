package vault

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"

	"fdp-go/internal/fdp"
)

var (
	contentBucket = []byte("content")
	pinsBucket    = []byte("pins")
	feedsBucket   = []byte("feeds")
)

// BoltVault stores everything in a single bbolt file. Feed slots are
// nested buckets keyed by big-endian version, so the cursor's last key
// is the latest version.
type BoltVault struct {
	db   *bolt.DB
	path string
}

// NewBoltVault opens (or creates) the bolt database at path.
func NewBoltVault(path string) (*BoltVault, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt vault %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{contentBucket, pinsBucket, feedsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bolt buckets: %w", err)
	}

	return &BoltVault{db: db, path: path}, nil
}

// Close releases the database file lock.
func (v *BoltVault) Close() error {
	return v.db.Close()
}

func versionKey(version int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(version))
}

// PutContent stores content identified by its address.
func (v *BoltVault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := readSized(r, size)
	if err != nil {
		return err
	}
	return v.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contentBucket).Put([]byte(address), data)
	})
}

// GetContent retrieves content by address.
func (v *BoltVault) GetContent(ctx context.Context, address string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var data []byte
	err := v.db.View(func(tx *bolt.Tx) error {
		// bolt values are only valid inside the transaction
		data = bytes.Clone(tx.Bucket(contentBucket).Get([]byte(address)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	if data == nil {
		return fmt.Errorf("content %s: %w", address, fdp.ErrNotFound)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// HasContent reports whether address is stored.
func (v *BoltVault) HasContent(ctx context.Context, address string) (bool, error) {
	var found bool
	err := v.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(contentBucket).Get([]byte(address)) != nil
		return nil
	})
	return found, err
}

// Pin marks stored content as pinned.
func (v *BoltVault) Pin(ctx context.Context, address string) error {
	return v.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(contentBucket).Get([]byte(address)) == nil {
			return fmt.Errorf("pinning %s: %w", address, fdp.ErrNotFound)
		}
		return tx.Bucket(pinsBucket).Put([]byte(address), []byte{1})
	})
}

// IsPinned reports whether address has been pinned.
func (v *BoltVault) IsPinned(ctx context.Context, address string) (bool, error) {
	var pinned bool
	err := v.db.View(func(tx *bolt.Tx) error {
		pinned = tx.Bucket(pinsBucket).Get([]byte(address)) != nil
		return nil
	})
	return pinned, err
}

// PutFeedUpdate stores one version of a feed slot.
func (v *BoltVault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	data, err := readSized(r, size)
	if err != nil {
		return err
	}
	return v.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(feedsBucket).CreateBucketIfNotExists([]byte(slot))
		if err != nil {
			return fmt.Errorf("creating slot bucket: %w", err)
		}
		return b.Put(versionKey(version), data)
	})
}

var errNoVersion = errors.New("no such version")

// GetFeedUpdate retrieves one version of a feed slot.
func (v *BoltVault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var data []byte
	err := v.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket).Bucket([]byte(slot))
		if b == nil {
			return errNoVersion
		}
		data = bytes.Clone(b.Get(versionKey(version)))
		if data == nil {
			return errNoVersion
		}
		return nil
	})
	if errors.Is(err, errNoVersion) {
		return fmt.Errorf("feed %s version %d: %w", slot, version, fdp.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading feed update: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write feed update: %w", err)
	}
	return nil
}

// LatestFeedVersion returns the highest stored version of slot, or 0.
func (v *BoltVault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var latest int64
	err := v.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket).Bucket([]byte(slot))
		if b == nil {
			return nil
		}
		if k, _ := b.Cursor().Last(); k != nil {
			latest = int64(binary.BigEndian.Uint64(k))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reading feed version: %w", err)
	}
	return latest, nil
}

// ValidateSetup verifies that every bucket exists.
func (v *BoltVault) ValidateSetup(ctx context.Context) error {
	return v.db.View(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{contentBucket, pinsBucket, feedsBucket} {
			if tx.Bucket(name) == nil {
				return fmt.Errorf("bolt vault %s is missing bucket %q", v.path, name)
			}
		}
		return nil
	})
}

var _ fdp.Vault = (*BoltVault)(nil)
