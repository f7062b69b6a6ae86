package fdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// PodsTopic is the account feed topic holding the pod list.
	PodsTopic = "Pods"

	// MaxPodNameLength is the longest accepted pod name in bytes.
	MaxPodNameLength = 64
)

// Pod is a named storage root with its own wallet. Every feed of the pod
// (directories and file metadata) is owned by the pod address.
type Pod struct {
	Name   string
	Index  int
	Wallet *Wallet
}

func (p *Pod) Address() Address { return p.Wallet.Address() }

type podList struct {
	Pods []podListEntry `json:"pods"`
}

type podListEntry struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

func (l *podList) find(name string) (podListEntry, bool) {
	i := slices.IndexFunc(l.Pods, func(e podListEntry) bool { return e.Name == name })
	if i < 0 {
		return podListEntry{}, false
	}
	return l.Pods[i], true
}

func (l *podList) nextIndex() int {
	next := 1
	for _, e := range l.Pods {
		if e.Index >= next {
			next = e.Index + 1
		}
	}
	return next
}

// ValidatePodName checks a pod name without modifying it.
func ValidatePodName(name string) error {
	switch {
	case name == "":
		return validationError("pod name is empty")
	case strings.TrimSpace(name) != name:
		return validationError("pod name %q contains characters that can be truncated", name)
	case strings.Contains(name, "/"):
		return validationError("pod name %q must not contain %q", name, "/")
	case len(name) > MaxPodNameLength:
		return validationError("pod name is %d bytes, at most %d allowed", len(name), MaxPodNameLength)
	}
	return nil
}

// PodManager keeps the account's pod list, a JSON document in the
// account feed at PodsTopic.
type PodManager struct {
	dirs   *DirectoryIndex
	logger Logger
}

func NewPodManager(dirs *DirectoryIndex, logger Logger) *PodManager {
	return &PodManager{dirs: dirs, logger: logger}
}

func (m *PodManager) readList(ctx context.Context, s *Session) (*podList, error) {
	payload, err := s.Feeds.Read(ctx, s.Owner(), PodsTopic)
	if errors.Is(err, ErrNotFound) {
		return &podList{Pods: []podListEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading pod list: %w", err)
	}

	var list podList
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("%w: decoding pod list: %w", ErrConsistency, err)
	}
	return &list, nil
}

func (m *PodManager) writeList(ctx context.Context, s *Session, list *podList) error {
	if list.Pods == nil {
		list.Pods = []podListEntry{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding pod list: %w", err)
	}
	if _, err := s.Feeds.Write(ctx, PodsTopic, payload, s.Wallet.PrivateKey()); err != nil {
		return fmt.Errorf("writing pod list: %w", err)
	}
	return nil
}

func (m *PodManager) open(s *Session, e podListEntry) (*Pod, error) {
	w, err := DerivePodWallet(s.Wallet, e.Index)
	if err != nil {
		return nil, err
	}
	return &Pod{Name: e.Name, Index: e.Index, Wallet: w}, nil
}

// Create adds a pod to the account. The pod's root directory is written
// before the pod is listed, so a listed pod always has a root.
func (m *PodManager) Create(ctx context.Context, s *Session, name string) (*Pod, error) {
	if err := ValidatePodName(name); err != nil {
		return nil, err
	}
	list, err := m.readList(ctx, s)
	if err != nil {
		return nil, err
	}
	if _, ok := list.find(name); ok {
		return nil, validationError("pod %q already exists", name)
	}

	entry := podListEntry{Name: name, Index: list.nextIndex()}
	pod, err := m.open(s, entry)
	if err != nil {
		return nil, err
	}
	if err := m.dirs.CreateRoot(ctx, s, pod.Wallet); err != nil {
		return nil, fmt.Errorf("creating root of pod %q: %w", name, err)
	}

	list.Pods = append(list.Pods, entry)
	if err := m.writeList(ctx, s, list); err != nil {
		return nil, err
	}

	m.logger.Info("pod created", "pod", name, "address", pod.Address().String())
	return pod, nil
}

// Open returns the pod called name.
func (m *PodManager) Open(ctx context.Context, s *Session, name string) (*Pod, error) {
	if err := ValidatePodName(name); err != nil {
		return nil, err
	}
	list, err := m.readList(ctx, s)
	if err != nil {
		return nil, err
	}
	e, ok := list.find(name)
	if !ok {
		return nil, fmt.Errorf("pod %q: %w", name, ErrNotFound)
	}
	return m.open(s, e)
}

// List returns the names of the account's pods in creation order.
func (m *PodManager) List(ctx context.Context, s *Session) ([]string, error) {
	list, err := m.readList(ctx, s)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Pods))
	for _, e := range list.Pods {
		names = append(names, e.Name)
	}
	return names, nil
}

// Delete removes the pod from the list. Its feeds remain in the store but
// are no longer reachable.
func (m *PodManager) Delete(ctx context.Context, s *Session, name string) error {
	if err := ValidatePodName(name); err != nil {
		return err
	}
	list, err := m.readList(ctx, s)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list.Pods, func(e podListEntry) bool { return e.Name == name })
	if i < 0 {
		return fmt.Errorf("pod %q: %w", name, ErrNotFound)
	}
	list.Pods = slices.Delete(list.Pods, i, i+1)
	if err := m.writeList(ctx, s, list); err != nil {
		return err
	}

	m.logger.Info("pod deleted", "pod", name)
	return nil
}
