// Package vaulttest checks that a fdp.Vault implementation honors the
// contract every backend shares.
package vaulttest

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"fdp-go/internal/fdp"
)

// addr is the content address of s, the only key a verifying gateway accepts.
func addr(s string) string {
	return fdp.ContentAddress([]byte(s)).String()
}

func slotKey(name string) string {
	return hex.EncodeToString(fdp.Hash([]byte(name)))
}

// Run exercises newVault against the shared vault contract. newVault must
// return a fresh, empty vault on each call.
func Run(t *testing.T, newVault func(t *testing.T) fdp.Vault) {
	t.Helper()
	ctx := context.Background()

	t.Run("content round trip", func(t *testing.T) {
		v := newVault(t)
		data := []byte("hello world")

		if err := v.PutContent(ctx, addr("hello world"), bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetContent(ctx, addr("hello world"), &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if !bytes.Equal(buf.Bytes(), data) {
			t.Errorf("GetContent() = %q, want %q", buf.Bytes(), data)
		}

		ok, err := v.HasContent(ctx, addr("hello world"))
		if err != nil || !ok {
			t.Errorf("HasContent() = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("content put is idempotent", func(t *testing.T) {
		v := newVault(t)
		for range 2 {
			if err := v.PutContent(ctx, addr("abc"), strings.NewReader("abc"), 3); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}
		}
		var buf bytes.Buffer
		if err := v.GetContent(ctx, addr("abc"), &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != "abc" {
			t.Errorf("GetContent() = %q, want %q", buf.String(), "abc")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutContent(ctx, addr(""), strings.NewReader(""), 0); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		var buf bytes.Buffer
		if err := v.GetContent(ctx, addr(""), &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("GetContent() returned %d bytes, want 0", buf.Len())
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutContent(ctx, addr("hello"), strings.NewReader("hello"), 100); err == nil {
			t.Error("PutContent() expected size mismatch error")
		}
	})

	t.Run("missing content", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		err := v.GetContent(ctx, addr("nope"), &buf)
		if !errors.Is(err, fdp.ErrNotFound) {
			t.Errorf("GetContent() error = %v, want ErrNotFound", err)
		}
		ok, err := v.HasContent(ctx, addr("nope"))
		if err != nil || ok {
			t.Errorf("HasContent() = %v, %v, want false, nil", ok, err)
		}
	})

	t.Run("pin", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutContent(ctx, addr("x"), strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		pinned, err := v.IsPinned(ctx, addr("x"))
		if err != nil || pinned {
			t.Fatalf("IsPinned() before Pin = %v, %v, want false, nil", pinned, err)
		}
		if err := v.Pin(ctx, addr("x")); err != nil {
			t.Fatalf("Pin() error = %v", err)
		}
		if err := v.Pin(ctx, addr("x")); err != nil {
			t.Fatalf("second Pin() error = %v", err)
		}
		pinned, err = v.IsPinned(ctx, addr("x"))
		if err != nil || !pinned {
			t.Errorf("IsPinned() = %v, %v, want true, nil", pinned, err)
		}
	})

	t.Run("pin missing content", func(t *testing.T) {
		v := newVault(t)
		if err := v.Pin(ctx, addr("ghost")); !errors.Is(err, fdp.ErrNotFound) {
			t.Errorf("Pin() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("feed versions", func(t *testing.T) {
		v := newVault(t)

		latest, err := v.LatestFeedVersion(ctx, slotKey("slot"))
		if err != nil {
			t.Fatalf("LatestFeedVersion() error = %v", err)
		}
		if latest != 0 {
			t.Fatalf("LatestFeedVersion() = %d, want 0", latest)
		}

		// out of order, and past 9 to catch lexical sorting
		for _, version := range []int64{2, 1, 10, 3} {
			payload := []byte{byte(version)}
			if err := v.PutFeedUpdate(ctx, slotKey("slot"), version, bytes.NewReader(payload), 1); err != nil {
				t.Fatalf("PutFeedUpdate(%d) error = %v", version, err)
			}
		}

		latest, err = v.LatestFeedVersion(ctx, slotKey("slot"))
		if err != nil {
			t.Fatalf("LatestFeedVersion() error = %v", err)
		}
		if latest != 10 {
			t.Errorf("LatestFeedVersion() = %d, want 10", latest)
		}

		var buf bytes.Buffer
		if err := v.GetFeedUpdate(ctx, slotKey("slot"), 2, &buf); err != nil {
			t.Fatalf("GetFeedUpdate() error = %v", err)
		}
		if !bytes.Equal(buf.Bytes(), []byte{2}) {
			t.Errorf("GetFeedUpdate(2) = %v, want [2]", buf.Bytes())
		}

		other, err := v.LatestFeedVersion(ctx, slotKey("other"))
		if err != nil || other != 0 {
			t.Errorf("LatestFeedVersion(other) = %d, %v, want 0, nil", other, err)
		}
	})

	t.Run("feed version replaced", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutFeedUpdate(ctx, slotKey("slot"), 1, strings.NewReader("a"), 1); err != nil {
			t.Fatalf("PutFeedUpdate() error = %v", err)
		}
		if err := v.PutFeedUpdate(ctx, slotKey("slot"), 1, strings.NewReader("bb"), 2); err != nil {
			t.Fatalf("PutFeedUpdate() error = %v", err)
		}
		var buf bytes.Buffer
		if err := v.GetFeedUpdate(ctx, slotKey("slot"), 1, &buf); err != nil {
			t.Fatalf("GetFeedUpdate() error = %v", err)
		}
		if buf.String() != "bb" {
			t.Errorf("GetFeedUpdate() = %q, want %q", buf.String(), "bb")
		}
	})

	t.Run("missing feed version", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		err := v.GetFeedUpdate(ctx, slotKey("slot"), 1, &buf)
		if !errors.Is(err, fdp.ErrNotFound) {
			t.Errorf("GetFeedUpdate() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid feed version", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutFeedUpdate(ctx, slotKey("slot"), 0, strings.NewReader("a"), 1); err == nil {
			t.Error("PutFeedUpdate(0) expected error")
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		v := newVault(t)
		if err := v.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
