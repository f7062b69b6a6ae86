package fdp_test

import (
	"errors"
	"testing"

	"fdp-go/internal/fdp"
	"fdp-go/internal/testutil"
)

func TestShareInfo_RoundTrip(t *testing.T) {
	t.Parallel()
	owner := testutil.NewWallet(t).Address()
	meta := fileRecord()

	info := fdp.NewShareInfo(meta, owner)
	data, err := fdp.EncodeShareInfo(info)
	if err != nil {
		t.Fatalf("EncodeShareInfo() error = %v", err)
	}
	got, err := fdp.DecodeShareInfo(data)
	if err != nil {
		t.Fatalf("DecodeShareInfo() error = %v", err)
	}
	src, err := got.Source()
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src != owner {
		t.Errorf("Source() = %s, want %s", src, owner)
	}
	if got.Meta.FullPath() != meta.FullPath() {
		t.Errorf("Meta.FullPath() = %q, want %q", got.Meta.FullPath(), meta.FullPath())
	}
}

func TestDecodeShareInfo_Invalid(t *testing.T) {
	t.Parallel()
	owner := testutil.NewWallet(t).Address().String()

	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "share"},
		{name: "no meta", input: `{"source_address":"` + owner + `"}`},
		{name: "directory meta", input: `{"meta":{"meta":{"version":2,"path":"/"},"fileOrDirNames":[]},"source_address":"` + owner + `"}`},
		{name: "bad address", input: `{"meta":{"version":2,"filePath":"/","fileName":"a","blocksReference":"` + fdp.Reference(make([]byte, 32)).String() + `"},"source_address":"xyz"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := fdp.DecodeShareInfo([]byte(tt.input)); !errors.Is(err, fdp.ErrConsistency) {
				t.Errorf("DecodeShareInfo() error = %v, want ErrConsistency", err)
			}
		})
	}
}
