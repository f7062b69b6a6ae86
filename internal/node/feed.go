package node

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"fdp-go/internal/fdp"
)

// ErrSignatureRejected is returned when a feed update is not signed by
// the owner of its slot.
var ErrSignatureRejected = errors.New("feed signature rejected")

const (
	versionSize   = 8
	envelopeHead  = versionSize + ed25519.PublicKeySize + ed25519.SignatureSize
	slotTopicSalt = "fdp/feed"
)

// slotID identifies the feed of owner under topic.
func slotID(owner fdp.Address, topic string) []byte {
	return fdp.Hash(owner[:], fdp.Hash([]byte(slotTopicSalt), []byte(topic)))
}

// An envelope is the stored form of one feed update:
//
//	version (8, big endian) | public key (32) | signature (64) | payload
//
// The signature covers slot | version | payload.
func signedMessage(slot []byte, version int64, payload []byte) []byte {
	msg := make([]byte, 0, len(slot)+versionSize+len(payload))
	msg = append(msg, slot...)
	msg = binary.BigEndian.AppendUint64(msg, uint64(version))
	return append(msg, payload...)
}

func sealEnvelope(slot []byte, version int64, payload []byte, key ed25519.PrivateKey) []byte {
	sig := ed25519.Sign(key, signedMessage(slot, version, payload))
	env := make([]byte, 0, envelopeHead+len(payload))
	env = binary.BigEndian.AppendUint64(env, uint64(version))
	env = append(env, key.Public().(ed25519.PublicKey)...)
	env = append(env, sig...)
	return append(env, payload...)
}

func openEnvelope(slot []byte, version int64, owner fdp.Address, env []byte) ([]byte, error) {
	if len(env) < envelopeHead {
		return nil, fmt.Errorf("%w: envelope is %d bytes", ErrSignatureRejected, len(env))
	}
	if got := int64(binary.BigEndian.Uint64(env[:versionSize])); got != version {
		return nil, fmt.Errorf("%w: envelope version %d, want %d", ErrSignatureRejected, got, version)
	}
	pub := ed25519.PublicKey(env[versionSize : versionSize+ed25519.PublicKeySize])
	sig := env[versionSize+ed25519.PublicKeySize : envelopeHead]
	payload := env[envelopeHead:]

	if fdp.AddressFromPublicKey(pub) != owner {
		return nil, fmt.Errorf("%w: signer is not %s", ErrSignatureRejected, owner)
	}
	if !ed25519.Verify(pub, signedMessage(slot, version, payload), sig) {
		return nil, fmt.Errorf("%w: invalid signature", ErrSignatureRejected)
	}
	return payload, nil
}

func updateReference(slot []byte, version int64) fdp.Reference {
	return fdp.Reference(fdp.Hash(slot, binary.BigEndian.AppendUint64(nil, uint64(version))))
}

// WriteFeedData appends payload as the next version of the slot owned by
// key's address. The version is read from the vault, so concurrent
// writers to the same slot may both pick the same version; the later
// write replaces the earlier one.
func (c *Client) WriteFeedData(ctx context.Context, batchID string, topic string, payload []byte, key ed25519.PrivateKey) (fdp.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, ErrBatchRequired
	}
	owner := fdp.AddressFromPublicKey(key.Public().(ed25519.PublicKey))
	slot := slotID(owner, topic)
	slotKey := hex.EncodeToString(slot)

	latest, err := c.vault.LatestFeedVersion(ctx, slotKey)
	if err != nil {
		return nil, fmt.Errorf("reading feed version: %w", err)
	}
	version := latest + 1

	env := sealEnvelope(slot, version, payload, key)
	if err := c.vault.PutFeedUpdate(ctx, slotKey, version, bytes.NewReader(env), int64(len(env))); err != nil {
		return nil, fmt.Errorf("storing feed update: %w", err)
	}
	c.logger.Debug("feed updated", "owner", owner.String(), "topic", topic, "version", version)

	return updateReference(slot, version), nil
}

// GetFeedData returns the latest correctly signed update of the slot
// (owner, topic). Versions whose envelope is rejected are skipped, so a
// forged write to a shared vault cannot hide earlier valid versions. If
// no version verifies, the rejection of the newest one is returned.
func (c *Client) GetFeedData(ctx context.Context, owner fdp.Address, topic string) (*fdp.FeedUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot := slotID(owner, topic)
	slotKey := hex.EncodeToString(slot)

	latest, err := c.vault.LatestFeedVersion(ctx, slotKey)
	if err != nil {
		return nil, fmt.Errorf("reading feed version: %w", err)
	}
	if latest == 0 {
		return nil, fmt.Errorf("feed %q of %s: %w", topic, owner, fdp.ErrNotFound)
	}

	var rejected error
	for version := latest; version > 0; version-- {
		var buf bytes.Buffer
		err := c.vault.GetFeedUpdate(ctx, slotKey, version, &buf)
		if errors.Is(err, fdp.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching feed update: %w", err)
		}
		payload, err := openEnvelope(slot, version, owner, buf.Bytes())
		if errors.Is(err, ErrSignatureRejected) {
			c.logger.Warn("feed update rejected", "owner", owner.String(), "topic", topic, "version", version, "error", err)
			if rejected == nil {
				rejected = err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return &fdp.FeedUpdate{Reference: updateReference(slot, version), Payload: payload}, nil
	}
	if rejected != nil {
		return nil, rejected
	}
	return nil, fmt.Errorf("feed %q of %s: %w", topic, owner, fdp.ErrNotFound)
}
