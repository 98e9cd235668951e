package cache

import "sync"

// defaultMaxEntries bounds a Memory cache constructed without an
// explicit size.
const defaultMaxEntries = 256

// Memory is a bounded in-memory Cache safe for concurrent use. When the
// cache is full the oldest entry is evicted.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
	order   []string
	max     int
}

// NewMemory returns a Memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries: make(map[string]string, maxEntries),
		max:     maxEntries,
	}
}

// Get returns the cached value for key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Set stores value under key, evicting the oldest entry when full.
// Updating an existing key keeps its insertion position.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		m.entries[key] = value
		return
	}
	if len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = value
	m.order = append(m.order, key)
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
