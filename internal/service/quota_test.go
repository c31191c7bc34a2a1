package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/storage"
)

// mockCounterStore 模拟计数存储
type mockCounterStore struct {
	mock.Mock
}

func (m *mockCounterStore) GetCounter(ctx context.Context, key string) (storage.Counter, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.Counter), args.Error(1)
}

func TestForwardQuotaTracker_GetUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("没有计数时用量为0且ttl为false", func(t *testing.T) {
		f := newFixture(t)
		limits := f.quota.GetUsage(ctx, &domain.Address{ID: "a1"})

		assert.Equal(t, 2000, limits.Allowed)
		assert.Equal(t, int64(0), limits.Used)
		assert.False(t, limits.TTL.Set)
		assert.False(t, limits.Unavailable)

		data, err := json.Marshal(limits)
		require.NoError(t, err)
		assert.JSONEq(t, `{"allowed":2000,"used":0,"ttl":false}`, string(data))
	})

	t.Run("窗口内的计数带剩余秒数", func(t *testing.T) {
		f := newFixture(t)
		f.counters.Set("wdf:a1", 5, time.Minute)

		limits := f.quota.GetUsage(ctx, &domain.Address{ID: "a1", Forwards: 100})

		assert.Equal(t, 100, limits.Allowed)
		assert.Equal(t, int64(5), limits.Used)
		assert.True(t, limits.TTL.Set)
		assert.Equal(t, int64(60), limits.TTL.Seconds)

		data, err := json.Marshal(limits)
		require.NoError(t, err)
		assert.JSONEq(t, `{"allowed":100,"used":5,"ttl":60}`, string(data))
	})

	t.Run("没有过期时间的计数ttl为false", func(t *testing.T) {
		f := newFixture(t)
		f.counters.Set("wdf:a1", 3, 0)

		limits := f.quota.GetUsage(ctx, &domain.Address{ID: "a1"})
		assert.Equal(t, int64(3), limits.Used)
		assert.False(t, limits.TTL.Set)
	})

	t.Run("计数存储故障降级为未知用量", func(t *testing.T) {
		f := newFixture(t)
		f.counters.FailWith(errors.New("connection refused"))

		limits := f.quota.GetUsage(ctx, &domain.Address{ID: "a1"})
		assert.True(t, limits.Unavailable)
		assert.Equal(t, int64(0), limits.Used)
		assert.Equal(t, 2000, limits.Allowed)
	})

	t.Run("未配置计数存储", func(t *testing.T) {
		tracker := NewForwardQuotaTracker(nil, "wdf:", 10, nil)
		limits := tracker.GetUsage(ctx, &domain.Address{ID: "a1"})
		assert.True(t, limits.Unavailable)
		assert.Equal(t, 10, limits.Allowed)
	})

	t.Run("计数键使用配置的前缀", func(t *testing.T) {
		counters := new(mockCounterStore)
		counters.On("GetCounter", mock.Anything, "fwd:abc").
			Return(storage.Counter{Value: 7, Exists: true, TTL: 90 * time.Second, HasTTL: true}, nil)

		tracker := NewForwardQuotaTracker(counters, "fwd:", 2000, nil)
		limits := tracker.GetUsage(ctx, &domain.Address{ID: "abc"})

		assert.Equal(t, int64(7), limits.Used)
		assert.Equal(t, int64(90), limits.TTL.Seconds)
		counters.AssertExpectations(t)
	})
}
