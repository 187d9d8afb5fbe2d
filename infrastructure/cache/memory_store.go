package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudecole/go-bulletin/internal/ports"
)

var _ ports.CacheStore = (*MemoryStore)(nil)

type memoryItem struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process ports.CacheStore. Expired entries are
// dropped lazily on read. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get decodes the value stored under key into dest.
func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	if key == "" {
		return false, ports.NewCacheError(key, "Get", ErrKeyEmpty)
	}

	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if !item.expires.IsZero() && !s.now().Before(item.expires) {
		s.mu.Lock()
		// Another writer may have refreshed the key in between.
		if cur, ok := s.items[key]; ok && cur.expires.Equal(item.expires) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, ports.NewCacheError(key, "Get", fmt.Errorf("%w: %v", ports.ErrCacheCorrupted, err))
	}
	return true, nil
}

// Set stores value under key. A zero expiration never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	if err := checkSet(key, value, expiration); err != nil {
		return ports.NewCacheError(key, "Set", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return ports.NewCacheError(key, "Set", err)
	}

	item := memoryItem{data: data}
	if expiration > 0 {
		item.expires = s.now().Add(expiration)
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]memoryItem)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired entries
// that have not been read since they expired.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
