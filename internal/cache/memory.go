package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is an in-process LRU store with per-entry expiry.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	maxEntries int
	now        func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates a store holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &Memory{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the stored value if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	if m == nil || key == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if m.now().After(entry.expiresAt) {
		m.order.Remove(elem)
		delete(m.items, key)
		return nil, false
	}
	m.order.MoveToFront(elem)
	return append([]byte(nil), entry.value...), true
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if m == nil || key == "" || ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := append([]byte(nil), value...)
	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = stored
		entry.expiresAt = m.now().Add(ttl)
		m.order.MoveToFront(elem)
		return
	}

	elem := m.order.PushFront(&memoryEntry{
		key:       key,
		value:     stored,
		expiresAt: m.now().Add(ttl),
	})
	m.items[key] = elem
	for len(m.items) > m.maxEntries {
		back := m.order.Back()
		if back == nil {
			return
		}
		delete(m.items, back.Value.(*memoryEntry).key)
		m.order.Remove(back)
	}
}

// Len reports the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
