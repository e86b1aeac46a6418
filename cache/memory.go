package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	timestamp time.Time
}

// Memory is an in-process TTL cache with a size cap
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory creates a memory cache holding at most maxEntries for ttl
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, found := m.entries[key]
	if !found || m.now().Sub(entry.timestamp) >= m.ttl {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, timestamp: m.now()}
	over := m.maxEntries > 0 && len(m.entries) > m.maxEntries
	m.mu.Unlock()

	if over {
		m.Cleanup()
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cleanup removes expired entries and, if still over the size limit, the oldest ones
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if now.Sub(entry.timestamp) >= m.ttl {
			delete(m.entries, key)
		}
	}

	if m.maxEntries <= 0 || len(m.entries) <= m.maxEntries {
		return
	}

	type keyed struct {
		key       string
		timestamp time.Time
	}
	entries := make([]keyed, 0, len(m.entries))
	for key, entry := range m.entries {
		entries = append(entries, keyed{key, entry.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})

	for i := 0; i < len(entries)-m.maxEntries; i++ {
		delete(m.entries, entries[i].key)
	}
}
