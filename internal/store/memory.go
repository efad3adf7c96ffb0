package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
// It is primarily useful for testing and for local runs without postgres.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Observation
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Observation)}
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(_ context.Context, address string) (*Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obs, ok := m.rows[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &obs, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[address]; !ok {
		return ErrNotFound
	}
	delete(m.rows, address)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rows))
	for addr := range m.rows {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}

// Upsert implements Store.
func (m *MemoryStore) Upsert(_ context.Context, obs *Observation) error {
	if err := checkCanonical(obs.Address); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[obs.Address] = *obs
	return nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }
