package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	confirmed bool
	expiresAt time.Time
}

// Memory is a TTL map for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *Memory) Lookup(_ context.Context, key string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, false, nil
	}
	return entry.confirmed, true, nil
}

func (c *Memory) Store(_ context.Context, key string, confirmed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{confirmed: confirmed, expiresAt: c.now().Add(c.ttl)}
	return nil
}
