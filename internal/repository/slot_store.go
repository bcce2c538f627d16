package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotStore is a byte-valued key store.  Get returns errSlotEmpty for
// a missing or expired key.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisSlotStore keeps slots in Redis under a common prefix.
type RedisSlotStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisSlotStore returns a store over rdb.  Keys are stored as
// prefix + key.
func NewRedisSlotStore(rdb redis.Cmdable, prefix string) *RedisSlotStore {
	return &RedisSlotStore{rdb: rdb, prefix: prefix}
}

func (s *RedisSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errSlotEmpty
	}
	return b, err
}

func (s *RedisSlotStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+key, val, ttl).Err()
}

func (s *RedisSlotStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// MemorySlotStore keeps slots in process memory.
type MemorySlotStore struct {
	mu   sync.Mutex
	data map[string]memorySlot
	now  func() time.Time
}

type memorySlot struct {
	val       []byte
	expiresAt time.Time
}

func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{data: make(map[string]memorySlot), now: time.Now}
}

func (s *MemorySlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.data[key]
	if !ok {
		return nil, errSlotEmpty
	}
	if !slot.expiresAt.IsZero() && !s.now().Before(slot.expiresAt) {
		delete(s.data, key)
		return nil, errSlotEmpty
	}
	out := make([]byte, len(slot.val))
	copy(out, slot.val)
	return out, nil
}

func (s *MemorySlotStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	slot := memorySlot{val: append([]byte(nil), val...)}
	if ttl > 0 {
		slot.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = slot
	s.mu.Unlock()
	return nil
}

func (s *MemorySlotStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
