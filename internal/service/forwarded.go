package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/storage"
)

// CreateForwardedInput 创建转发地址的输入
type CreateForwardedInput struct {
	Address       string
	Name          string
	Targets       []string
	Forwards      int
	AllowWildcard bool
	Autoreply     *domain.Autoreply
	Tags          []string
}

// UpdateForwardedInput 修改转发地址的输入，nil 字段保持不变
type UpdateForwardedInput struct {
	Address   *string
	Name      *string
	Targets   []string
	Forwards  *int
	Autoreply *domain.Autoreply
	Tags      []string
}

// ForwardedLimits 转发地址的配额信息
type ForwardedLimits struct {
	Forwards ForwardLimits `json:"forwards"`
}

// ForwardedAddress 带配额快照的转发地址
type ForwardedAddress struct {
	domain.Address
	Limits ForwardedLimits `json:"limits"`
}

// ForwardedService 封装转发地址相关业务操作。
type ForwardedService struct {
	store   storage.Store
	targets *TargetResolver
	quota   *ForwardQuotaTracker
	matcher *domain.WildcardMatcher
	log     *zap.Logger
	metrics *monitoring.Metrics
}

// NewForwardedService 创建转发地址服务。
func NewForwardedService(store storage.Store, targets *TargetResolver, quota *ForwardQuotaTracker, cfg config.DirectoryConfig, log *zap.Logger) *ForwardedService {
	return &ForwardedService{
		store:   store,
		targets: targets,
		quota:   quota,
		matcher: domain.NewWildcardMatcher(cfg.MaxWildcardSuffix),
		log:     orNop(log),
	}
}

// SetMetrics 设置监控指标
func (s *ForwardedService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// CreateForwarded 创建转发地址
func (s *ForwardedService) CreateForwarded(ctx context.Context, caller domain.Caller, input CreateForwardedInput) (*domain.Address, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	address := domain.NormalizeAddress(input.Address)
	if _, err := s.matcher.Validate(address, input.AllowWildcard); err != nil {
		return nil, err
	}
	if input.Forwards < 0 {
		return nil, domain.ErrInvalidForwards
	}
	if len(input.Targets) == 0 {
		return nil, domain.ErrNoTargets
	}

	addrview := domain.CanonicalView(address)
	targets, err := s.targets.Prepare(ctx, input.Targets, addrview)
	if err != nil {
		return nil, err
	}

	if err := ensureAvailable(ctx, s.store, addrview); err != nil {
		return nil, err
	}

	tags, tagsView := domain.CanonicalizeTags(input.Tags)
	record := &domain.Address{
		ID:       uuid.NewString(),
		Address:  address,
		Addrview: addrview,
		Name:     strings.TrimSpace(input.Name),
		Targets:  targets,
		Forwards: input.Forwards,
		Tags:     tags,
		TagsView: tagsView,
		Created:  time.Now().UTC(),
	}
	if input.Autoreply != nil {
		record.Autoreply = *input.Autoreply
	}

	if err := s.store.InsertAddress(ctx, record); err != nil {
		return nil, storeError(err, nil, domain.ErrAddressExists)
	}

	s.metrics.RecordAddressCreated("forwarded")
	s.log.Info("创建转发地址",
		zap.String("caller", caller.ID),
		zap.String("address", record.Address),
		zap.Int("targets", len(record.Targets)),
	)
	return record, nil
}

// GetForwarded 获取转发地址及其转发配额快照
func (s *ForwardedService) GetForwarded(ctx context.Context, caller domain.Caller, id string) (*ForwardedAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ForwardedAddress{
		Address: *record,
		Limits:  ForwardedLimits{Forwards: s.quota.GetUsage(ctx, record)},
	}, nil
}

// UpdateForwarded 修改转发地址
func (s *ForwardedService) UpdateForwarded(ctx context.Context, caller domain.Caller, id string, input UpdateForwardedInput) (*domain.Address, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	if input.Forwards != nil && *input.Forwards < 0 {
		return nil, domain.ErrInvalidForwards
	}
	if input.Targets != nil && len(input.Targets) == 0 {
		return nil, domain.ErrNoTargets
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	renamed := false
	if input.Address != nil {
		address := domain.NormalizeAddress(*input.Address)
		if address != record.Address {
			if record.IsWildcard() {
				return nil, domain.ErrWildcardRename
			}
			if _, err := s.matcher.Validate(address, false); err != nil {
				return nil, err
			}
			addrview := domain.CanonicalView(address)
			if addrview != record.Addrview {
				if err := ensureAvailable(ctx, s.store, addrview); err != nil {
					return nil, err
				}
			}
			record.Address = address
			record.Addrview = addrview
			renamed = true
		}
	}

	switch {
	case input.Targets != nil:
		targets, err := s.targets.Prepare(ctx, input.Targets, record.Addrview)
		if err != nil {
			return nil, err
		}
		record.Targets = targets
	case renamed:
		for _, t := range record.Targets {
			if t.Type == domain.TargetMail && domain.CanonicalView(t.Value) == record.Addrview {
				return nil, domain.ErrSelfForward
			}
		}
	}

	if input.Name != nil {
		record.Name = strings.TrimSpace(*input.Name)
	}
	if input.Forwards != nil {
		record.Forwards = *input.Forwards
	}
	if input.Autoreply != nil {
		record.Autoreply = *input.Autoreply
	}
	if input.Tags != nil {
		record.Tags, record.TagsView = normalizeTags(input.Tags)
	}

	if err := s.store.UpdateAddress(ctx, record); err != nil {
		return nil, storeError(err, domain.ErrAddressNotFound, domain.ErrAddressExists)
	}

	s.log.Info("修改转发地址",
		zap.String("caller", caller.ID),
		zap.String("address_id", record.ID),
		zap.Bool("renamed", renamed),
	)
	return record, nil
}

// DeleteForwarded 删除转发地址
func (s *ForwardedService) DeleteForwarded(ctx context.Context, caller domain.Caller, id string) error {
	if err := caller.Authorize(); err != nil {
		return err
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAddress(ctx, record.ID); err != nil {
		return storeError(err, domain.ErrAddressNotFound, nil)
	}

	s.metrics.RecordAddressDeleted("forwarded")
	s.log.Info("删除转发地址",
		zap.String("caller", caller.ID),
		zap.String("address", record.Address),
	)
	return nil
}

// load 读取转发地址，用户地址按不存在处理
func (s *ForwardedService) load(ctx context.Context, id string) (*domain.Address, error) {
	record, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return nil, storeError(err, domain.ErrAddressNotFound, nil)
	}
	if !record.IsForwarded() {
		return nil, domain.ErrAddressNotFound
	}
	return record, nil
}
