package cache

import (
	"context"
	"sync"
	"time"
)

// FastTier is the volatile key-value tier consulted before the durable
// store. It may be entirely absent; the manager degrades to durable-only.
// A miss is (nil, nil).
type FastTier interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryTier is an in-process FastTier. Entries expire lazily on read.
type MemoryTier struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryTier creates an empty in-memory fast tier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{entries: make(map[string]memoryEntry)}
}

// Get returns the value for key, or (nil, nil) when absent or expired.
func (m *MemoryTier) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	return e.value, nil
}

// Set stores value under key for ttl.
func (m *MemoryTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		return nil
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Del removes key.
func (m *MemoryTier) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryTier) Ping(ctx context.Context) error { return nil }

// Close drops all entries.
func (m *MemoryTier) Close() error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}
