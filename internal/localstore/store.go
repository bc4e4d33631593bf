// Package localstore keeps small per-visitor state (session flag, liked
// products) outside the shared document store.
package localstore

import (
	"context"
	"sync"
)

// Store is a scoped key-value store. A scope is usually a visitor ID.
type Store interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	Remove(ctx context.Context, scope, key string) error
}

// Memory is an in-process Store for tests and single-instance dev runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[scope][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[scope] == nil {
		m.data[scope] = make(map[string]string)
	}
	m.data[scope][key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[scope], key)
	if len(m.data[scope]) == 0 {
		delete(m.data, scope)
	}
	return nil
}
