package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

// DomainAliasService 封装域名别名相关业务操作。
type DomainAliasService struct {
	repo      storage.DomainAliasRepository
	paginator *pagination.Paginator
	log       *zap.Logger
}

// NewDomainAliasService 创建域名别名服务。
func NewDomainAliasService(repo storage.DomainAliasRepository, cfg config.DirectoryConfig, log *zap.Logger) *DomainAliasService {
	return &DomainAliasService{
		repo:      repo,
		paginator: pagination.NewPaginator(cfg.DefaultPageLimit, cfg.MaxPageLimit),
		log:       orNop(log),
	}
}

// ListDomainAliases 分页列出域名别名，按 alias 升序
func (s *DomainAliasService) ListDomainAliases(ctx context.Context, caller domain.Caller, query string, req pagination.Request) (*pagination.Page[domain.DomainAlias], error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	window, err := s.paginator.Window(req)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	total, err := s.repo.CountDomainAliases(ctx, needle)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}
	items, err := s.repo.ListDomainAliases(ctx, needle, window)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}

	page := pagination.Build(items, func(a domain.DomainAlias) string { return a.Alias }, window, req, total)
	page.Query = query
	return &page, nil
}

// CreateDomainAlias 创建域名别名
func (s *DomainAliasService) CreateDomainAlias(ctx context.Context, caller domain.Caller, alias, target string) (*domain.DomainAlias, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	alias = domain.NormalizeDomain(alias)
	target = domain.NormalizeDomain(target)
	if err := domain.ValidateDomainName(alias); err != nil {
		return nil, domain.ErrInvalidDomain.WithMessage("invalid alias domain %q", alias)
	}
	if err := domain.ValidateDomainName(target); err != nil {
		return nil, domain.ErrInvalidDomain.WithMessage("invalid target domain %q", target)
	}
	if alias == target {
		return nil, domain.ErrAliasIsDomain
	}

	record := &domain.DomainAlias{
		ID:      uuid.NewString(),
		Alias:   alias,
		Domain:  target,
		Created: time.Now().UTC(),
	}
	if err := s.repo.InsertDomainAlias(ctx, record); err != nil {
		return nil, storeError(err, nil, domain.ErrDomainAliasExists)
	}

	s.log.Info("创建域名别名",
		zap.String("caller", caller.ID),
		zap.String("alias", alias),
		zap.String("domain", target),
	)
	return record, nil
}

// GetDomainAlias 按 ID 获取域名别名
func (s *DomainAliasService) GetDomainAlias(ctx context.Context, caller domain.Caller, id string) (*domain.DomainAlias, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetDomainAlias(ctx, id)
	if err != nil {
		return nil, storeError(err, domain.ErrDomainAliasNotFound, nil)
	}
	return record, nil
}

// ResolveDomainAlias 按别名域名查找
func (s *DomainAliasService) ResolveDomainAlias(ctx context.Context, caller domain.Caller, alias string) (*domain.DomainAlias, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetDomainAliasByAlias(ctx, domain.NormalizeDomain(alias))
	if err != nil {
		return nil, storeError(err, domain.ErrDomainAliasNotFound, nil)
	}
	return record, nil
}

// DeleteDomainAlias 删除域名别名
func (s *DomainAliasService) DeleteDomainAlias(ctx context.Context, caller domain.Caller, id string) error {
	if err := caller.Authorize(); err != nil {
		return err
	}

	if err := s.repo.DeleteDomainAlias(ctx, id); err != nil {
		return storeError(err, domain.ErrDomainAliasNotFound, nil)
	}

	s.log.Info("删除域名别名", zap.String("caller", caller.ID), zap.String("id", id))
	return nil
}
