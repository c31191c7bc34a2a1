package memory

import (
	"context"
	"sync"
	"time"

	"mailplatform/backend/internal/storage"
)

// counterEntry 计数条目，ExpiresAt 为零表示永不过期
type counterEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// CounterStore 内存计数器，语义与 Redis 的 INCR/EXPIRE 一致
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	now      func() time.Time
	failWith error
}

var _ storage.CounterStore = (*CounterStore)(nil)

// NewCounterStore 创建内存计数器
func NewCounterStore() *CounterStore {
	return &CounterStore{
		counters: make(map[string]*counterEntry),
		now:      time.Now,
	}
}

// Increment 计数加一，首次写入时设置过期时间
func (c *CounterStore) Increment(key string, window time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.counters[key]
	if !ok || entry.expired(now) {
		entry = &counterEntry{}
		if window > 0 {
			entry.ExpiresAt = now.Add(window)
		}
		c.counters[key] = entry
	}
	entry.Count++
	return entry.Count
}

// Set 直接写入计数值，ttl<=0 表示不过期
func (c *CounterStore) Set(key string, value int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &counterEntry{Count: value}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}
	c.counters[key] = entry
}

// FailWith 让后续读取返回指定错误，用于模拟计数存储故障
func (c *CounterStore) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// GetCounter 原子读取计数值与剩余过期时间
func (c *CounterStore) GetCounter(ctx context.Context, key string) (storage.Counter, error) {
	if err := ctx.Err(); err != nil {
		return storage.Counter{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failWith != nil {
		return storage.Counter{}, c.failWith
	}

	now := c.now()
	entry, ok := c.counters[key]
	if !ok {
		return storage.Counter{}, nil
	}
	if entry.expired(now) {
		delete(c.counters, key)
		return storage.Counter{}, nil
	}

	counter := storage.Counter{Value: entry.Count, Exists: true}
	if !entry.ExpiresAt.IsZero() {
		counter.TTL = entry.ExpiresAt.Sub(now)
		counter.HasTTL = true
	}
	return counter, nil
}

func (e *counterEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
