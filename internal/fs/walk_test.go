package fs

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

func relPaths(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":            "a",
		"docs/b.md":        "bb",
		"docs/deep/c.txt":  "ccc",
		"debug.log":        "ignored by config",
		".git/config":      "ignored dir",
		"tmp/x.bin":        "ignored by fdpignore",
		IgnoreFileName:     "tmp/\n",
		"docs/deep/d.log":  "ignored by config",
		"docs/empty/.keep": "",
	})

	entries, err := Walk(root, []string{"*.log", ".git/"})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"a.txt", "docs", "docs/b.md", "docs/deep", "docs/deep/c.txt", "docs/empty", "docs/empty/.keep"}
	if got := relPaths(entries); !slices.Equal(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}

	for _, e := range entries {
		if e.RelPath == "docs/deep/c.txt" && (e.IsDir || e.Size != 3) {
			t.Errorf("c.txt entry = %+v, want regular file of size 3", e)
		}
		if e.RelPath == "docs" && !e.IsDir {
			t.Errorf("docs entry = %+v, want directory", e)
		}
	}
}

func TestWalk_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "r"})
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, err := Walk(root, nil)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got := relPaths(entries); !slices.Equal(got, []string{"real.txt"}) {
		t.Errorf("Walk() = %v, want [real.txt]", got)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f.txt": "f"})

	t.Run("regular file", func(t *testing.T) {
		p, info, err := Resolve(filepath.Join(root, "f.txt"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !filepath.IsAbs(p) || info.IsDir() {
			t.Errorf("Resolve() = %q, dir=%v, want absolute file", p, info.IsDir())
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if _, _, err := Resolve(filepath.Join(root, "missing")); err == nil {
			t.Error("Resolve() expected error for missing path")
		}
	})

	t.Run("symlink rejected", func(t *testing.T) {
		link := filepath.Join(root, "link")
		if err := os.Symlink(filepath.Join(root, "f.txt"), link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		if _, _, err := Resolve(link); err == nil {
			t.Error("Resolve() expected error for symlink")
		}
	})
}
