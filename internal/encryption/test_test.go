package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestTestSealer_SealOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewTestSealer()

			sealed, err := s.Seal("pass", tt.input)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if !bytes.HasPrefix(sealed, testHeader) {
				t.Error("sealed output does not start with the test header")
			}

			got, err := s.Open("pass", sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, tt.input) {
				t.Errorf("Open() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestTestSealer_WrongPassphrase(t *testing.T) {
	t.Parallel()
	s := NewTestSealer()

	sealed, _ := s.Seal("right", []byte("secret"))
	_, err := s.Open("wrong", sealed)
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Open() error = %v, want ErrWrongPassphrase", err)
	}
}

func TestTestSealer_InvalidHeader(t *testing.T) {
	t.Parallel()
	s := NewTestSealer()
	if _, err := s.Open("pass", []byte("short")); err == nil {
		t.Error("Open() expected error for invalid header")
	}
}
