package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/storage"
)

// MatchKind 地址解析的命中方式
type MatchKind string

const (
	MatchID       MatchKind = "id"
	MatchExact    MatchKind = "exact"
	MatchAlias    MatchKind = "alias"
	MatchWildcard MatchKind = "wildcard"
)

// ResolveOptions 解析选项
type ResolveOptions struct {
	AllowWildcard bool
}

// ResolvedAddress 解析结果。转发地址附带配额快照。
type ResolvedAddress struct {
	domain.Address
	Match  MatchKind        `json:"match"`
	Limits *ForwardedLimits `json:"limits,omitempty"`
}

// Resolver 把投递地址解析为目录中的记录
type Resolver struct {
	store   storage.Store
	quota   *ForwardQuotaTracker
	matcher *domain.WildcardMatcher
	log     *zap.Logger
	metrics *monitoring.Metrics
}

// NewResolver 创建地址解析器
func NewResolver(store storage.Store, quota *ForwardQuotaTracker, cfg config.DirectoryConfig, log *zap.Logger) *Resolver {
	return &Resolver{
		store:   store,
		quota:   quota,
		matcher: domain.NewWildcardMatcher(cfg.MaxWildcardSuffix),
		log:     orNop(log),
	}
}

// SetMetrics 设置监控指标
func (r *Resolver) SetMetrics(m *monitoring.Metrics) {
	r.metrics = m
}

// ResolveAddress 解析地址：不含 @ 的输入按记录 ID 查找；
// 否则依次尝试精确匹配、域名别名替换，允许时再按通配候选的优先级查找。
func (r *Resolver) ResolveAddress(ctx context.Context, caller domain.Caller, raw string, opts ResolveOptions) (*ResolvedAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidAddress
	}

	record, match, err := r.lookup(ctx, raw, opts)
	if err != nil {
		if errors.Is(err, domain.ErrAddressNotFound) {
			r.metrics.RecordResolve("miss")
		}
		return nil, err
	}
	r.metrics.RecordResolve(string(match))

	result := &ResolvedAddress{Address: *record, Match: match}
	if record.IsForwarded() {
		result.Limits = &ForwardedLimits{Forwards: r.quota.GetUsage(ctx, record)}
	}

	r.log.Debug("解析地址",
		zap.String("caller", caller.ID),
		zap.String("input", raw),
		zap.String("address", record.Address),
		zap.String("match", string(match)),
	)
	return result, nil
}

func (r *Resolver) lookup(ctx context.Context, raw string, opts ResolveOptions) (*domain.Address, MatchKind, error) {
	if !strings.Contains(raw, "@") {
		record, err := r.store.GetAddress(ctx, raw)
		if err != nil {
			return nil, "", storeError(err, domain.ErrAddressNotFound, nil)
		}
		return record, MatchID, nil
	}

	view := domain.CanonicalView(raw)
	local, domainName, ok := domain.SplitAddress(view)
	if !ok {
		return nil, "", domain.ErrInvalidAddress
	}

	record, err := r.byAddrview(ctx, view)
	if err != nil || record != nil {
		return record, MatchExact, err
	}

	aliasView := ""
	alias, err := r.store.GetDomainAliasByAlias(ctx, domainName)
	switch {
	case err == nil:
		aliasView = local + "@" + alias.Domain
		record, err = r.byAddrview(ctx, aliasView)
		if err != nil || record != nil {
			return record, MatchAlias, err
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, "", storeError(err, nil, nil)
	}

	if !opts.AllowWildcard {
		return nil, "", domain.ErrAddressNotFound
	}

	record, err = r.byWildcard(ctx, view, aliasView)
	if err != nil {
		return nil, "", err
	}
	if record == nil {
		return nil, "", domain.ErrAddressNotFound
	}
	return record, MatchWildcard, nil
}

// byAddrview 不存在时返回 nil, nil
func (r *Resolver) byAddrview(ctx context.Context, view string) (*domain.Address, error) {
	record, err := r.store.GetAddressByAddrview(ctx, view)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, nil, nil)
	}
	return record, nil
}

// byWildcard 一次批量查询全部候选，按候选顺序取第一个命中。
// 同一优先级上原域名先于别名目标域名。
func (r *Resolver) byWildcard(ctx context.Context, view, aliasView string) (*domain.Address, error) {
	candidates := r.matcher.Candidates(view)
	if aliasView != "" {
		aliasCandidates := r.matcher.Candidates(aliasView)
		merged := make([]string, 0, len(candidates)+len(aliasCandidates))
		for i := range candidates {
			merged = append(merged, candidates[i], aliasCandidates[i])
		}
		candidates = merged
	}

	found, err := r.store.FindAddressesByAddrviews(ctx, candidates)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}

	byView := make(map[string]*domain.Address, len(found))
	for i := range found {
		byView[found[i].Addrview] = &found[i]
	}
	for _, c := range candidates {
		if record, ok := byView[c]; ok {
			return record, nil
		}
	}
	return nil, nil
}
