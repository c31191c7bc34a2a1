package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

const (
	checkTimeout       = 3 * time.Second
	goroutineThreshold = 10000
)

// Pinger 可探测连通性的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 将函数适配为 Pinger
type PingFunc func(ctx context.Context) error

// Ping 调用函数本身
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。
// store 不可用时服务未就绪；counters 为 nil 表示没有配置计数存储。
func NewHealthChecker(store Pinger, counters Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))
	hc.health.AddReadinessCheck("store", hc.check("store", store))
	if counters != nil {
		// 计数存储故障只记日志，不影响就绪
		probe := hc.check("counters", counters)
		hc.health.AddReadinessCheck("counters", func() error {
			if err := probe(); err != nil {
				hc.logger.Warn("计数存储不可用", zap.Error(err))
			}
			return nil
		})
	}

	return hc
}

func (hc *HealthChecker) check(name string, p Pinger) healthcheck.Check {
	return healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			hc.logger.Warn("健康检查失败", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}, checkTimeout)
}

// LiveHandler 存活探针
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪探针
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}
