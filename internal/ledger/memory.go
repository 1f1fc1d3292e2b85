package ledger

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemoryStore constructs an in-memory Store implementation for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{}
}

// Append stores the row in memory.
func (m *memoryStore) Append(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// ReadAll returns a copy of all appended rows in append order.
func (m *memoryStore) ReadAll(_ context.Context) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}
