// Package store provides in-memory Collection implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/finhub/generic"
)

// =============================================================================
// MEMORY COLLECTION - In-memory implementation (for testing/dev)
// =============================================================================

type Memory[T generic.Record] struct {
	mu      sync.RWMutex
	kind    string
	records map[string]T
	order   []string
}

// NewMemory creates an empty collection. kind names the record type in
// not-found errors.
func NewMemory[T generic.Record](kind string) *Memory[T] {
	return &Memory[T]{
		kind:    kind,
		records: make(map[string]T),
	}
}

func (m *Memory[T]) Create(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.RecordID()
	if id == "" {
		return generic.Invalid("id", "required")
	}
	if _, exists := m.records[id]; exists {
		return generic.ErrConflict
	}
	m.records[id] = rec
	m.order = append(m.order, id)
	return nil
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		var zero T
		return zero, &generic.NotFoundError{Kind: m.kind, ID: id}
	}
	return rec, nil
}

// List returns records in insertion order.
func (m *Memory[T]) List(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]T, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.records[id])
	}
	return result, nil
}

func (m *Memory[T]) Update(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.RecordID()
	if _, ok := m.records[id]; !ok {
		return &generic.NotFoundError{Kind: m.kind, ID: id}
	}
	m.records[id] = rec
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return &generic.NotFoundError{Kind: m.kind, ID: id}
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len is the number of stored records.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Reset drops every record.
func (m *Memory[T]) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]T)
	m.order = nil
	return nil
}
