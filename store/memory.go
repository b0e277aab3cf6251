package store

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, nil
	}
	return Entry{Value: cloneBytes(e.Value), Version: e.Version}, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.entries[key]
	m.entries[key] = Entry{Value: cloneBytes(value), Version: prev.Version + 1}
	return nil
}

func (m *MemoryStore) CompareAndSet(_ context.Context, key string, value []byte, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.entries[key]
	if prev.Version != version {
		return ErrVersionConflict
	}
	m.entries[key] = Entry{Value: cloneBytes(value), Version: version + 1}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
