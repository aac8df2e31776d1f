// Package kv provides the key-value storage collaborators behind the quote store:
// a durable SQLite-backed implementation and a session-scoped in-memory one.
package kv

import (
	"context"
	"sync"
)

// Storage is a string key-value store.
type Storage interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// Memory is an in-memory Storage whose contents live only as long as the value.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }
