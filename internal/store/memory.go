package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/roach88/lexstore/internal/record"
)

// Memory is an in-process CollectionStore.
type Memory struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		snaps: make(map[string]Snapshot),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, name string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snaps[name]
	if !ok {
		return Snapshot{Name: name}, nil
	}
	snap.Data = slices.Clone(snap.Data)
	return snap, nil
}

func (m *Memory) Put(_ context.Context, name string, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.snaps[name]
	if err := checkVersion(name, expected, cur.Version); err != nil {
		return 0, err
	}
	digest := record.Digest(data)
	if cur.Version > 0 && cur.Digest == digest {
		return cur.Version, nil
	}
	next := Snapshot{
		Name:      name,
		Data:      slices.Clone(data),
		Version:   cur.Version + 1,
		Digest:    digest,
		UpdatedAt: m.now(),
	}
	m.snaps[name] = next
	return next.Version, nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.snaps))
	for name := range m.snaps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *Memory) Close() error {
	return nil
}
