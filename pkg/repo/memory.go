package repo

import (
	"context"
	"sync"
)

// Memory is an in-memory Repository. Insertion order is preserved for List.
// Filtering is delegated to a caller-supplied match function since entity
// shapes vary.
type Memory[T any, ID comparable] struct {
	mu    sync.RWMutex
	keyOf func(T) ID
	match func(T, map[string]any) bool
	order []ID
	items map[ID]T
}

// NewMemory creates a Memory repository. keyOf extracts the entity ID; match
// may be nil to disable filtering.
func NewMemory[T any, ID comparable](keyOf func(T) ID, match func(T, map[string]any) bool) *Memory[T, ID] {
	return &Memory[T, ID]{
		keyOf: keyOf,
		match: match,
		items: make(map[ID]T),
	}
}

func (m *Memory[T, ID]) Get(_ context.Context, id ID) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return item, nil
}

func (m *Memory[T, ID]) List(_ context.Context, opts ListOpts) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []T
	for _, id := range m.order {
		item := m.items[id]
		if opts.Filter != nil && m.match != nil && !m.match(item, opts.Filter) {
			continue
		}
		out = append(out, item)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory[T, ID]) Create(_ context.Context, entity T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.keyOf(entity)
	if _, exists := m.items[id]; !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = entity
	return entity, nil
}

func (m *Memory[T, ID]) Update(_ context.Context, entity T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.keyOf(entity)
	if _, exists := m.items[id]; !exists {
		var zero T
		return zero, ErrNotFound
	}
	m.items[id] = entity
	return entity, nil
}

func (m *Memory[T, ID]) Delete(_ context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[id]; !exists {
		return ErrNotFound
	}
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
