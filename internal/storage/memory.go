package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MemoryKV keeps snapshots in process memory. Contents are lost on exit.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

// NewMemoryKVFromDir seeds the store from <key>.json files in dir, e.g. a
// bt_tickets.json exported from another install. Missing or unreadable files
// are skipped.
func NewMemoryKVFromDir(dir string, keys ...string) *MemoryKV {
	kv := NewMemoryKV()
	for _, key := range keys {
		data, err := os.ReadFile(filepath.Join(dir, key+".json"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		kv.items[key] = data
	}
	return kv
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	return out
}
