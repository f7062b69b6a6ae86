package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log"})
		// the default .fdpignore pattern comes first
		if len(m.patterns) != 2 {
			t.Fatalf("expected 2 patterns, got %d", len(m.patterns))
		}
		if m.patterns[1].pattern != "*.log" {
			t.Errorf("expected *.log, got %s", m.patterns[1].pattern)
		}
	})

	t.Run("classifies path, basename and directory patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "build/output", "cache/"})
		if m.patterns[1].matchPath {
			t.Error("*.log should not be a path pattern")
		}
		if !m.patterns[2].matchPath {
			t.Error("build/output should be a path pattern")
		}
		if !m.patterns[3].dirOnly || m.patterns[3].pattern != "cache" {
			t.Errorf("cache/ parsed as %+v, want dirOnly cache", m.patterns[3])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		isDir        bool
		want         bool
	}{
		{name: "basename glob matches file in root", patterns: []string{"*.log"}, relativePath: "app.log", want: true},
		{name: "basename glob matches file in subdirectory", patterns: []string{"*.log"}, relativePath: filepath.Join("sub", "app.log"), want: true},
		{name: "basename glob does not match different extension", patterns: []string{"*.log"}, relativePath: "app.txt", want: false},
		{name: "ignore file itself is always ignored", patterns: nil, relativePath: ".fdpignore", want: true},
		{name: "exact basename matches in subdirectory", patterns: []string{".DS_Store"}, relativePath: filepath.Join("sub", ".DS_Store"), want: true},
		{name: "path pattern matches exact relative path", patterns: []string{"build/output"}, relativePath: filepath.Join("build", "output"), want: true},
		{name: "path pattern does not match wrong path", patterns: []string{"build/output"}, relativePath: filepath.Join("src", "output"), want: false},
		{name: "path pattern with glob", patterns: []string{"build/*.o"}, relativePath: filepath.Join("build", "main.o"), want: true},
		{name: "question mark wildcard", patterns: []string{"?.txt"}, relativePath: "a.txt", want: true},
		{name: "question mark does not match multiple chars", patterns: []string{"?.txt"}, relativePath: "ab.txt", want: false},
		{name: "character class", patterns: []string{"*.[oa]"}, relativePath: "main.o", want: true},
		{name: "bad pattern never matches", patterns: []string{"[x"}, relativePath: "[x", want: false},
		{name: "directory pattern matches directory", patterns: []string{"node_modules/"}, relativePath: "node_modules", isDir: true, want: true},
		{name: "directory pattern skips file of same name", patterns: []string{"node_modules/"}, relativePath: "node_modules", want: false},
		{name: "no user patterns matches ordinary file", patterns: nil, relativePath: "anything.txt", want: false},
		{name: "empty string path", patterns: []string{"*.log"}, relativePath: "", want: false},
		{name: "multiple patterns second matches", patterns: []string{"*.log", "*.tmp"}, relativePath: "data.tmp", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath, tt.isDir); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.relativePath, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.log\n# comment\n\n*.tmp\nbuild/output\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		// raw lines; filtering is NewIgnoreMatcher's job
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 4 {
			t.Errorf("expected 4 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile("/nonexistent/" + IgnoreFileName)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
