package vfs

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// KV is the injected key-value namespace a StoreBackend persists into.
// Implementations must provide per-key atomicity; nothing more is assumed.
// Concurrent writes to the same key are last-write-wins at the store's own
// consistency level.
type KV interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error

	// Search returns up to limit items whose key starts with prefix,
	// ordered by key, skipping offset items. An empty prefix matches
	// everything in the namespace.
	Search(ctx context.Context, namespace, prefix string, offset, limit int) ([]KVItem, error)
}

// KVItem is one search result.
type KVItem struct {
	Key   string
	Value []byte
}

// searchPageSize bounds each Search call when draining a namespace.
const searchPageSize = 100

// searchAll drains every item under prefix, paging through the store so a
// large namespace never requires one unbounded call.
func searchAll(ctx context.Context, kv KV, namespace, prefix string) ([]KVItem, error) {
	var all []KVItem
	for offset := 0; ; offset += searchPageSize {
		page, err := kv.Search(ctx, namespace, prefix, offset, searchPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < searchPageSize {
			return all, nil
		}
	}
}

// MemoryKV is an in-process KV for tests and single-node deployments.
// A RWMutex guards the map; keys are kept sorted per Search call.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]map[string][]byte)}
}

// Get returns the value for key, with a presence flag.
func (m *MemoryKV) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[namespace][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Put stores value under key.
func (m *MemoryKV) Put(ctx context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	ns[key] = stored
	return nil
}

// Delete removes key if present.
func (m *MemoryKV) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[namespace], key)
	return nil
}

// Search returns a page of items under prefix in key order.
func (m *MemoryKV) Search(ctx context.Context, namespace, prefix string, offset, limit int) ([]KVItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data[namespace]))
	for key := range m.data[namespace] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if offset >= len(keys) {
		return nil, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}

	items := make([]KVItem, 0, len(keys))
	for _, key := range keys {
		value := m.data[namespace][key]
		out := make([]byte, len(value))
		copy(out, value)
		items = append(items, KVItem{Key: key, Value: out})
	}
	return items, nil
}
