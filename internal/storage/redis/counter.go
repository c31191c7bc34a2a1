package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"mailplatform/backend/internal/storage"
)

// CounterStore 读取投递子系统写入的转发计数
type CounterStore struct {
	client *Client
}

var _ storage.CounterStore = (*CounterStore)(nil)

// NewCounterStore 创建计数存储
func NewCounterStore(client *Client) *CounterStore {
	return &CounterStore{client: client}
}

// GetCounter 在一个 MULTI 事务中读取计数值与剩余 TTL
func (s *CounterStore) GetCounter(ctx context.Context, key string) (storage.Counter, error) {
	var (
		getCmd *goredis.StringCmd
		ttlCmd *goredis.DurationCmd
	)
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return storage.Counter{}, err
	}

	value, err := getCmd.Int64()
	if errors.Is(err, goredis.Nil) {
		return storage.Counter{}, nil
	}
	if err != nil {
		return storage.Counter{}, err
	}

	counter := storage.Counter{Value: value, Exists: true}
	// -1 表示无过期时间，-2 表示键不存在
	if ttl := ttlCmd.Val(); ttl > 0 {
		counter.TTL = ttl
		counter.HasTTL = true
	}
	return counter, nil
}
