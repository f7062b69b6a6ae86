package fdp_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"fdp-go/internal/fdp"
)

func TestValidatePodName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pod     string
		wantErr bool
	}{
		{name: "simple", pod: "photos"},
		{name: "inner space", pod: "my photos"},
		{name: "max length", pod: strings.Repeat("p", fdp.MaxPodNameLength)},
		{name: "empty", pod: "", wantErr: true},
		{name: "too long", pod: strings.Repeat("p", fdp.MaxPodNameLength+1), wantErr: true},
		{name: "slash", pod: "a/b", wantErr: true},
		{name: "leading space", pod: " photos", wantErr: true},
		{name: "trailing newline", pod: "photos\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := fdp.ValidatePodName(tt.pod)
			if tt.wantErr != (err != nil) {
				t.Errorf("ValidatePodName(%q) error = %v, wantErr %v", tt.pod, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, fdp.ErrValidation) {
				t.Errorf("ValidatePodName(%q) error = %v, want ErrValidation", tt.pod, err)
			}
		})
	}
}

func TestPodManager_CreateOpenList(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	l := newLayer(t)

	names, err := l.pods.List(ctx, l.session)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("List() = %v, want empty", names)
	}

	first, err := l.pods.Create(ctx, l.session, "photos")
	if err != nil {
		t.Fatalf("Create(photos) error = %v", err)
	}
	second, err := l.pods.Create(ctx, l.session, "docs")
	if err != nil {
		t.Fatalf("Create(docs) error = %v", err)
	}
	if first.Index != 1 || second.Index != 2 {
		t.Errorf("indices = %d, %d, want 1, 2", first.Index, second.Index)
	}
	if first.Address() == second.Address() || first.Address() == l.session.Owner() {
		t.Error("pod addresses are not distinct")
	}

	names, err = l.pods.List(ctx, l.session)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"photos", "docs"}) {
		t.Errorf("List() = %v, want [photos docs]", names)
	}

	opened, err := l.pods.Open(ctx, l.session, "photos")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened.Address() != first.Address() {
		t.Errorf("Open() address = %s, want %s", opened.Address(), first.Address())
	}

	listing, err := l.dirs.List(ctx, l.session, opened, fdp.RootPath)
	if err != nil {
		t.Fatalf("List(root) error = %v", err)
	}
	if len(listing.Files) != 0 || len(listing.Directories) != 0 {
		t.Errorf("new pod root = %+v, want empty", listing)
	}
}

func TestPodManager_RootWrittenBeforeList(t *testing.T) {
	t.Parallel()
	l := newLayer(t)

	if _, err := l.pods.Create(t.Context(), l.session, "photos"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := l.node.Topics(); !slices.Equal(got, []string{fdp.RootPath, fdp.PodsTopic}) {
		t.Errorf("feed writes = %v, want [/ Pods]", got)
	}
}

func TestPodManager_Errors(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	l := newLayer(t)
	l.withPod(t, "photos")

	if _, err := l.pods.Create(ctx, l.session, "photos"); !errors.Is(err, fdp.ErrValidation) {
		t.Errorf("Create(duplicate) error = %v, want ErrValidation", err)
	}
	if _, err := l.pods.Open(ctx, l.session, "missing"); !errors.Is(err, fdp.ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}
	if err := l.pods.Delete(ctx, l.session, "missing"); !errors.Is(err, fdp.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := l.pods.Create(ctx, l.session, "bad/name"); !errors.Is(err, fdp.ErrValidation) {
		t.Errorf("Create(bad/name) error = %v, want ErrValidation", err)
	}
	if l.node.FeedWrites() != 0 {
		t.Errorf("FeedWrites() = %d, want 0", l.node.FeedWrites())
	}
}

func TestPodManager_DeleteKeepsIndicesUnique(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	l := newLayer(t)
	l.withPod(t, "a")
	b := l.withPod(t, "b")

	if err := l.pods.Delete(ctx, l.session, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	c, err := l.pods.Create(ctx, l.session, "c")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Index <= b.Index {
		t.Errorf("new pod index = %d, want > %d", c.Index, b.Index)
	}

	names, err := l.pods.List(ctx, l.session)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"b", "c"}) {
		t.Errorf("List() = %v, want [b c]", names)
	}
}
