package fdp_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"fdp-go/internal/fdp"
	"fdp-go/internal/testutil"
)

func TestEncodeManifest_EmptyBlocks(t *testing.T) {
	t.Parallel()

	data, err := fdp.EncodeManifest(&fdp.BlockManifest{})
	if err != nil {
		t.Fatalf("EncodeManifest() error = %v", err)
	}
	if got := string(data); got != `{"blocks":[]}` {
		t.Errorf("EncodeManifest() = %s, want {\"blocks\":[]}", got)
	}
}

func TestManifest_RoundTrip(t *testing.T) {
	t.Parallel()

	plain := fdp.Reference(bytes.Repeat([]byte{0x11}, fdp.ReferenceSize))
	encrypted := fdp.Reference(bytes.Repeat([]byte{0x22}, fdp.EncryptedReferenceSize))

	tests := []struct {
		name  string
		input *fdp.BlockManifest
		want  *fdp.BlockManifest
	}{
		{
			name:  "nil blocks",
			input: &fdp.BlockManifest{},
			want:  &fdp.BlockManifest{Blocks: []fdp.Block{}},
		},
		{
			name:  "zero blocks",
			input: &fdp.BlockManifest{Blocks: []fdp.Block{}},
		},
		{
			name: "single zero-size block",
			input: &fdp.BlockManifest{Blocks: []fdp.Block{
				{Name: "block-0", Size: 0, CompressedSize: 0, Reference: encrypted},
			}},
		},
		{
			name: "several blocks",
			input: &fdp.BlockManifest{Blocks: []fdp.Block{
				{Name: "block-0", Size: 1000000, CompressedSize: 1000000, Reference: encrypted},
				{Name: "block-1", Size: 17, CompressedSize: 17, Reference: plain},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			want := tt.want
			if want == nil {
				want = tt.input
			}

			data, err := fdp.EncodeManifest(tt.input)
			if err != nil {
				t.Fatalf("EncodeManifest() error = %v", err)
			}
			got, err := fdp.DecodeManifest(data)
			if err != nil {
				t.Fatalf("DecodeManifest() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("DecodeManifest(EncodeManifest(m)) = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantBlocks int
		wantErr    bool
	}{
		{name: "empty list", input: `{"blocks":[]}`, wantBlocks: 0},
		{name: "missing list", input: `{}`, wantBlocks: 0},
		{
			name:       "one block",
			input:      `{"blocks":[{"name":"block-0","size":3,"compressedSize":3,"reference":"` + strings.Repeat("ab", 32) + `"}]}`,
			wantBlocks: 1,
		},
		{name: "block without reference", input: `{"blocks":[{"name":"block-0","size":3}]}`, wantErr: true},
		{name: "not json", input: `blocks`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := fdp.DecodeManifest([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, fdp.ErrConsistency) {
					t.Errorf("DecodeManifest() error = %v, want ErrConsistency", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeManifest() error = %v", err)
			}
			if len(m.Blocks) != tt.wantBlocks {
				t.Errorf("got %d blocks, want %d", len(m.Blocks), tt.wantBlocks)
			}
		})
	}
}

func TestUploadManifest(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	n := testutil.NewTestNode(t)

	m, err := fdp.UploadBlocks(ctx, n, testutil.TestBatchID, []byte("hello manifest"), 5, 2)
	if err != nil {
		t.Fatalf("UploadBlocks() error = %v", err)
	}
	ref, err := fdp.UploadManifest(ctx, n, testutil.TestBatchID, m)
	if err != nil {
		t.Fatalf("UploadManifest() error = %v", err)
	}
	if !ref.Encrypted() {
		t.Error("manifest reference is not encrypted")
	}

	got, err := fdp.DownloadManifest(ctx, n, ref)
	if err != nil {
		t.Fatalf("DownloadManifest() error = %v", err)
	}
	if len(got.Blocks) != len(m.Blocks) {
		t.Fatalf("got %d blocks, want %d", len(got.Blocks), len(m.Blocks))
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("DownloadManifest() = %+v, want %+v", got, m)
	}
}
