package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryKey struct {
	scope string
	key   string
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the in-process Store used when Redis is unavailable.
type MemoryStore struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, scope, key string, out interface{}) (bool, error) {
	val, ok := s.entries.Load(memoryKey{scope, key})
	if !ok {
		return false, nil
	}
	entry := val.(*memoryEntry)
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		s.entries.Delete(memoryKey{scope, key})
		return false, nil
	}
	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, scope, key string, val interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	s.entries.Store(memoryKey{scope, key}, &memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)})
	return nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	s.entries.Range(func(k, _ interface{}) bool {
		if covered(k.(memoryKey).key, keys) {
			s.entries.Delete(k)
		}
		return true
	})
	return nil
}

func (s *MemoryStore) DropScope(ctx context.Context, scope string) error {
	s.entries.Range(func(k, _ interface{}) bool {
		if k.(memoryKey).scope == scope {
			s.entries.Delete(k)
		}
		return true
	})
	return nil
}
