package store

import (
	"context"
	"sync"

	"github.com/chris/phoenix/internal/session"
)

// MemoryStore keeps the encoded document in memory. Loads decode a fresh
// copy, so callers never share state with the store.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*session.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.data, "memory")
}

func (m *MemoryStore) Save(ctx context.Context, doc *session.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.saves++
	m.mu.Unlock()
	return nil
}

// SetRaw replaces the stored bytes as-is.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }
