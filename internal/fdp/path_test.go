package fdp_test

import (
	"errors"
	"testing"

	"fdp-go/internal/fdp"
)

func TestValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "top-level file", path: "/a.txt"},
		{name: "nested", path: "/docs/reports/q1.pdf"},
		{name: "inner spaces", path: "/my docs/a b.txt"},
		{name: "empty", path: "", wantErr: true},
		{name: "relative", path: "docs/a.txt", wantErr: true},
		{name: "root only", path: "/", wantErr: true},
		{name: "trailing slash", path: "/docs/", wantErr: true},
		{name: "double slash", path: "/docs//a.txt", wantErr: true},
		{name: "leading space", path: " /a.txt", wantErr: true},
		{name: "trailing newline", path: "/a.txt\n", wantErr: true},
		{name: "segment with trailing space", path: "/docs /a.txt", wantErr: true},
		{name: "segment with leading tab", path: "/\tdocs/a.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := fdp.ValidatePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, fdp.ErrValidation) {
					t.Errorf("ValidatePath(%q) error = %v, want ErrValidation", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidatePath(%q) error = %v", tt.path, err)
			}
		})
	}
}

func TestValidateDirectoryPath(t *testing.T) {
	t.Parallel()

	if err := fdp.ValidateDirectoryPath("/"); err != nil {
		t.Errorf("ValidateDirectoryPath(/) error = %v", err)
	}
	if err := fdp.ValidateDirectoryPath("/docs"); err != nil {
		t.Errorf("ValidateDirectoryPath(/docs) error = %v", err)
	}
	if err := fdp.ValidateDirectoryPath("docs"); !errors.Is(err, fdp.ErrValidation) {
		t.Errorf("ValidateDirectoryPath(docs) error = %v, want ErrValidation", err)
	}
}

func TestDecomposePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		wantDir  string
		wantName string
	}{
		{path: "/a.txt", wantDir: "/", wantName: "a.txt"},
		{path: "/docs/a.txt", wantDir: "/docs", wantName: "a.txt"},
		{path: "/x/y/z", wantDir: "/x/y", wantName: "z"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			dir, name, err := fdp.DecomposePath(tt.path)
			if err != nil {
				t.Fatalf("DecomposePath() error = %v", err)
			}
			if dir != tt.wantDir || name != tt.wantName {
				t.Errorf("DecomposePath(%q) = (%q, %q), want (%q, %q)", tt.path, dir, name, tt.wantDir, tt.wantName)
			}
			if got := fdp.JoinPath(dir, name); got != tt.path {
				t.Errorf("JoinPath(%q, %q) = %q, want %q", dir, name, got, tt.path)
			}
		})
	}

	if _, _, err := fdp.DecomposePath("/docs/"); !errors.Is(err, fdp.ErrValidation) {
		t.Errorf("DecomposePath(/docs/) error = %v, want ErrValidation", err)
	}
}
