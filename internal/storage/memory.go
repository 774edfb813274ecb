package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps values in a map. A positive quota caps the total size of
// keys and values in bytes, the way browsers cap local storage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
	size   int
	quota  int
}

func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
		quota:  quota,
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.size + len(key) + len(value)
	if old, ok := m.values[key]; ok {
		size -= len(key) + len(old)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}
	m.values[key] = value
	m.size = size
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if old, ok := m.values[key]; ok {
			m.size -= len(key) + len(old)
			delete(m.values, key)
		}
	}
	return nil
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
