package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 地址目录指标
	AddressesCreated *prometheus.CounterVec
	AddressesDeleted *prometheus.CounterVec
	ResolveTotal     *prometheus.CounterVec

	// 转发配额
	QuotaUnavailable prometheus.Counter

	// 域名迁移
	RenameModified *prometheus.CounterVec
	RenameFailures *prometheus.CounterVec
	RenameDuration prometheus.Histogram

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics 在默认注册表上创建监控指标
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWithRegistry 在指定注册表上创建监控指标，测试中每次使用独立注册表
func NewMetricsWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maildir_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AddressesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_addresses_created_total",
				Help: "Total number of addresses created",
			},
			[]string{"kind"},
		),

		AddressesDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_addresses_deleted_total",
				Help: "Total number of addresses deleted",
			},
			[]string{"kind"},
		),

		ResolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_resolve_total",
				Help: "Address resolutions by match outcome",
			},
			[]string{"outcome"},
		),

		QuotaUnavailable: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "maildir_forward_quota_unavailable_total",
				Help: "Forward counter reads that failed and degraded to unknown usage",
			},
		),

		RenameModified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_domain_rename_modified_total",
				Help: "Records modified by domain renames per collection",
			},
			[]string{"collection"},
		),

		RenameFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_domain_rename_failures_total",
				Help: "Failed domain rename phases",
			},
			[]string{"phase"},
		),

		RenameDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maildir_domain_rename_duration_seconds",
				Help:    "Domain rename duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildir_errors_total",
				Help: "Total number of errors",
			},
			[]string{"kind", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "maildir_panics_total",
				Help: "Total number of panics",
			},
		),

		gatherer: gatherer,
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAddressCreated 记录地址创建，kind 为 user 或 forwarded
func (m *Metrics) RecordAddressCreated(kind string) {
	if m == nil {
		return
	}
	m.AddressesCreated.WithLabelValues(kind).Inc()
}

// RecordAddressDeleted 记录地址删除
func (m *Metrics) RecordAddressDeleted(kind string) {
	if m == nil {
		return
	}
	m.AddressesDeleted.WithLabelValues(kind).Inc()
}

// RecordResolve 记录一次解析的命中方式
func (m *Metrics) RecordResolve(outcome string) {
	if m == nil {
		return
	}
	m.ResolveTotal.WithLabelValues(outcome).Inc()
}

// RecordQuotaUnavailable 记录计数存储读取失败
func (m *Metrics) RecordQuotaUnavailable() {
	if m == nil {
		return
	}
	m.QuotaUnavailable.Inc()
}

// RecordRename 记录一次域名迁移
func (m *Metrics) RecordRename(modified map[string]int64, failedPhases []string, duration time.Duration) {
	if m == nil {
		return
	}
	for collection, n := range modified {
		m.RenameModified.WithLabelValues(collection).Add(float64(n))
	}
	for _, phase := range failedPhases {
		m.RenameFailures.WithLabelValues(phase).Inc()
	}
	m.RenameDuration.Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(kind, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
