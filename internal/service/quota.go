package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/storage"
)

// TTLSeconds 计数窗口剩余秒数，没有过期时间或计数不存在时序列化为 false
type TTLSeconds struct {
	Seconds int64
	Set     bool
}

// MarshalJSON 未设置时输出 false
func (t TTLSeconds) MarshalJSON() ([]byte, error) {
	if !t.Set {
		return []byte("false"), nil
	}
	return []byte(strconv.FormatInt(t.Seconds, 10)), nil
}

// UnmarshalJSON 接受秒数或 false
func (t *TTLSeconds) UnmarshalJSON(data []byte) error {
	if string(data) == "false" || string(data) == "null" {
		*t = TTLSeconds{}
		return nil
	}
	seconds, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", data, err)
	}
	*t = TTLSeconds{Seconds: seconds, Set: true}
	return nil
}

// ForwardLimits 转发配额快照
type ForwardLimits struct {
	Allowed     int        `json:"allowed"`
	Used        int64      `json:"used"`
	TTL         TTLSeconds `json:"ttl"`
	Unavailable bool       `json:"unavailable,omitempty"`
}

// ForwardQuotaTracker 读取投递子系统写入的转发计数
type ForwardQuotaTracker struct {
	counters        storage.CounterStore
	prefix          string
	defaultForwards int
	log             *zap.Logger
	metrics         *monitoring.Metrics
}

// NewForwardQuotaTracker 创建配额读取器，counters 为 nil 时配额一律视为不可用
func NewForwardQuotaTracker(counters storage.CounterStore, prefix string, defaultForwards int, log *zap.Logger) *ForwardQuotaTracker {
	return &ForwardQuotaTracker{
		counters:        counters,
		prefix:          prefix,
		defaultForwards: defaultForwards,
		log:             orNop(log),
	}
}

// SetMetrics 设置监控指标
func (t *ForwardQuotaTracker) SetMetrics(m *monitoring.Metrics) {
	t.metrics = m
}

// Allowed 地址的每日转发上限
func (t *ForwardQuotaTracker) Allowed(a *domain.Address) int {
	if a.Forwards > 0 {
		return a.Forwards
	}
	return t.defaultForwards
}

// GetUsage 读取地址当前窗口内的转发次数。
// 计数存储故障不会让调用失败，只把用量记为 0 并标记不可用。
func (t *ForwardQuotaTracker) GetUsage(ctx context.Context, a *domain.Address) ForwardLimits {
	limits := ForwardLimits{Allowed: t.Allowed(a)}

	if t.counters == nil {
		limits.Unavailable = true
		return limits
	}

	counter, err := t.counters.GetCounter(ctx, t.prefix+a.ID)
	if err != nil {
		t.log.Warn("读取转发计数失败",
			zap.String("address_id", a.ID),
			zap.Error(domain.ErrQuotaUnavailable.Wrap(err)),
		)
		t.metrics.RecordQuotaUnavailable()
		limits.Unavailable = true
		return limits
	}

	if !counter.Exists {
		return limits
	}
	limits.Used = counter.Value
	if counter.HasTTL {
		limits.TTL = TTLSeconds{Seconds: int64(counter.TTL.Round(time.Second) / time.Second), Set: true}
	}
	return limits
}
