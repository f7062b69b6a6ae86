package fdp_test

import (
	"testing"
	"time"

	"fdp-go/internal/fdp"
	"fdp-go/internal/testutil"
)

// layer bundles the managers of one account over a counting in-memory node.
type layer struct {
	node    *testutil.CountingNode
	session *fdp.Session
	clock   *testutil.StubClock
	dirs    *fdp.DirectoryIndex
	pods    *fdp.PodManager
	files   *fdp.FileManager
}

func newLayer(t *testing.T) *layer {
	t.Helper()
	n := testutil.NewCountingNode(testutil.NewTestNode(t))
	clock := testutil.TickingClock(time.Second)
	logger := fdp.NewNopLogger()

	dirs := fdp.NewDirectoryIndex(clock, logger)
	pods := fdp.NewPodManager(dirs, logger)
	return &layer{
		node:    n,
		session: testutil.NewTestSession(t, n),
		clock:   clock,
		dirs:    dirs,
		pods:    pods,
		files:   fdp.NewFileManager(pods, dirs, clock, logger, fdp.DefaultUploadOptions()),
	}
}

// withPod creates a pod and resets the node counters.
func (l *layer) withPod(t *testing.T, name string) *fdp.Pod {
	t.Helper()
	pod, err := l.pods.Create(t.Context(), l.session, name)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	l.node.Reset()
	return pod
}

func (l *layer) mkdir(t *testing.T, pod *fdp.Pod, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := l.dirs.Create(t.Context(), l.session, pod, p); err != nil {
			t.Fatalf("mkdir %s error = %v", p, err)
		}
	}
	l.node.Reset()
}
