package store

import (
	"context"
	"sync"
	"time"
)

const recentEventLimit = 256

type Store interface {
	IsProcessed(ctx context.Context, msgID string) (bool, error)
	MarkProcessed(ctx context.Context, msgID string, ttl time.Duration) error
	PublishEvent(ctx context.Context, data []byte) error
	// Recent returns up to n of the latest published events, oldest first.
	// n <= 0 returns everything retained.
	Recent(ctx context.Context, n int) ([][]byte, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	processed map[string]time.Time
	events    [][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processed: make(map[string]time.Time),
	}
}

func (m *MemoryStore) IsProcessed(_ context.Context, msgID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expireAt, ok := m.processed[msgID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expireAt), nil
}

func (m *MemoryStore) MarkProcessed(_ context.Context, msgID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, expireAt := range m.processed {
		if !now.Before(expireAt) {
			delete(m.processed, id)
		}
	}
	m.processed[msgID] = now.Add(ttl)
	return nil
}

// PublishEvent keeps the most recent events in memory.
func (m *MemoryStore) PublishEvent(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, append([]byte(nil), data...))
	if over := len(m.events) - recentEventLimit; over > 0 {
		m.events = append([][]byte(nil), m.events[over:]...)
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, n int) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.events) {
		n = len(m.events)
	}
	out := make([][]byte, 0, n)
	for _, ev := range m.events[len(m.events)-n:] {
		out = append(out, append([]byte(nil), ev...))
	}
	return out, nil
}
