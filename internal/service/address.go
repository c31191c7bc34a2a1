package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

// UserAddress 用户邮箱地址，Main 由用户记录的主地址推导
type UserAddress struct {
	domain.Address
	Main bool `json:"main"`
}

// ListAddressesQuery 地址列表查询条件
type ListAddressesQuery struct {
	Query        string
	Tags         []string
	RequiredTags []string
	Forward      string
	Page         pagination.Request
}

// CreateUserAddressInput 创建用户地址的输入
type CreateUserAddressInput struct {
	Address       string
	Name          string
	Main          bool
	Tags          []string
	AllowWildcard bool
}

// UpdateUserAddressInput 修改用户地址的输入，nil 字段保持不变
type UpdateUserAddressInput struct {
	Address *string
	Name    *string
	Main    *bool
	Tags    []string
}

// AddressService 封装用户邮箱地址相关业务操作。
type AddressService struct {
	store     storage.Store
	matcher   *domain.WildcardMatcher
	paginator *pagination.Paginator
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// NewAddressService 创建地址服务。
func NewAddressService(store storage.Store, cfg config.DirectoryConfig, log *zap.Logger) *AddressService {
	return &AddressService{
		store:     store,
		matcher:   domain.NewWildcardMatcher(cfg.MaxWildcardSuffix),
		paginator: pagination.NewPaginator(cfg.DefaultPageLimit, cfg.MaxPageLimit),
		log:       orNop(log),
	}
}

// SetMetrics 设置监控指标
func (s *AddressService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// searchTerms 将查询串转换为 address 与 addrview 上的子串，命中任意一个即可。
// 带点的片段（first.last）只能在 address 上命中，去点写法（firstlast）在 addrview 上命中。
func searchTerms(query string) (address, view string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ""
	}
	return domain.NormalizeAddress(query), domain.CanonicalView(query)
}

// ListAddresses 分页列出全部地址，按 addrview 升序。
func (s *AddressService) ListAddresses(ctx context.Context, caller domain.Caller, q ListAddressesQuery) (*pagination.Page[domain.Address], error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	window, err := s.paginator.Window(q.Page)
	if err != nil {
		return nil, err
	}

	addressQuery, viewQuery := searchTerms(q.Query)
	filter := storage.AddressFilter{
		Query:        viewQuery,
		AddressQuery: addressQuery,
		AnyTags:      tagViews(q.Tags),
		RequiredTags: tagViews(q.RequiredTags),
		Forward:      strings.TrimSpace(q.Forward),
	}
	filter.OnlyForwarded = filter.Forward != ""

	total, err := s.store.CountAddresses(ctx, filter)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}
	items, err := s.store.ListAddresses(ctx, filter, window)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}

	page := pagination.Build(items, func(a domain.Address) string { return a.Addrview }, window, q.Page, total)
	page.Query = q.Query
	return &page, nil
}

// ListUserAddresses 列出用户的全部地址
func (s *AddressService) ListUserAddresses(ctx context.Context, caller domain.Caller, userID string) ([]UserAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.store.ListAddressesByUser(ctx, user.ID)
	if err != nil {
		return nil, storeError(err, nil, nil)
	}

	result := make([]UserAddress, 0, len(addresses))
	for _, a := range addresses {
		result = append(result, UserAddress{Address: a, Main: a.Address == user.Address})
	}
	return result, nil
}

// CreateUserAddress 为用户新增地址。
// 用户还没有主地址时，第一个非通配地址自动成为主地址。
func (s *AddressService) CreateUserAddress(ctx context.Context, caller domain.Caller, userID string, input CreateUserAddressInput) (*UserAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	address := domain.NormalizeAddress(input.Address)
	kind, err := s.matcher.Validate(address, input.AllowWildcard)
	if err != nil {
		return nil, err
	}
	if input.Main && kind != domain.NotWildcard {
		return nil, domain.ErrWildcardMain
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	addrview := domain.CanonicalView(address)
	if err := ensureAvailable(ctx, s.store, addrview); err != nil {
		return nil, err
	}

	tags, tagsView := domain.CanonicalizeTags(input.Tags)
	owner := user.ID
	record := &domain.Address{
		ID:       uuid.NewString(),
		Address:  address,
		Addrview: addrview,
		UserID:   &owner,
		Name:     strings.TrimSpace(input.Name),
		Tags:     tags,
		TagsView: tagsView,
		Created:  time.Now().UTC(),
	}

	if err := s.store.InsertAddress(ctx, record); err != nil {
		return nil, storeError(err, nil, domain.ErrAddressExists)
	}

	main := false
	if input.Main || (user.Address == "" && kind == domain.NotWildcard) {
		if err := s.store.SetUserAddress(ctx, user.ID, record.Address); err != nil {
			return nil, storeError(err, domain.ErrUserNotFound, nil)
		}
		main = true
	}

	s.metrics.RecordAddressCreated("user")
	s.log.Info("创建用户地址",
		zap.String("caller", caller.ID),
		zap.String("user_id", user.ID),
		zap.String("address", record.Address),
		zap.Bool("main", main),
	)

	return &UserAddress{Address: *record, Main: main}, nil
}

// GetUserAddress 获取用户的单个地址
func (s *AddressService) GetUserAddress(ctx context.Context, caller domain.Caller, userID, id string) (*UserAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	user, record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &UserAddress{Address: *record, Main: record.Address == user.Address}, nil
}

// UpdateUserAddress 修改用户地址。
// 通配地址不能改名，主地址状态只能通过把另一个地址设为主地址来转移。
func (s *AddressService) UpdateUserAddress(ctx context.Context, caller domain.Caller, userID, id string, input UpdateUserAddressInput) (*UserAddress, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	if input.Main != nil && !*input.Main {
		return nil, domain.ErrMainUnset
	}

	user, record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	wasMain := record.Address == user.Address
	setMain := input.Main != nil && *input.Main
	if setMain && record.IsWildcard() {
		return nil, domain.ErrWildcardMain
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

	if input.Name != nil {
		record.Name = strings.TrimSpace(*input.Name)
	}
	if input.Tags != nil {
		record.Tags, record.TagsView = normalizeTags(input.Tags)
	}

	if err := s.store.UpdateAddress(ctx, record); err != nil {
		return nil, storeError(err, domain.ErrAddressNotFound, domain.ErrAddressExists)
	}

	if setMain || (wasMain && renamed) {
		if err := s.store.SetUserAddress(ctx, user.ID, record.Address); err != nil {
			return nil, storeError(err, domain.ErrUserNotFound, nil)
		}
	}

	s.log.Info("修改用户地址",
		zap.String("caller", caller.ID),
		zap.String("user_id", user.ID),
		zap.String("address_id", record.ID),
		zap.Bool("renamed", renamed),
	)

	return &UserAddress{Address: *record, Main: setMain || wasMain}, nil
}

// DeleteUserAddress 删除用户地址，当前主地址不能删除
func (s *AddressService) DeleteUserAddress(ctx context.Context, caller domain.Caller, userID, id string) error {
	if err := caller.Authorize(); err != nil {
		return err
	}

	user, record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if record.Address == user.Address {
		return domain.ErrMainAddressDelete
	}

	if err := s.store.DeleteAddress(ctx, record.ID); err != nil {
		return storeError(err, domain.ErrAddressNotFound, nil)
	}

	s.metrics.RecordAddressDeleted("user")
	s.log.Info("删除用户地址",
		zap.String("caller", caller.ID),
		zap.String("user_id", user.ID),
		zap.String("address", record.Address),
	)
	return nil
}

func (s *AddressService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, domain.ErrUserNotFound, nil)
	}
	return user, nil
}

// loadOwned 读取用户及其名下的地址，地址不属于该用户时按不存在处理
func (s *AddressService) loadOwned(ctx context.Context, userID, id string) (*domain.User, *domain.Address, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, domain.ErrAddressNotFound, nil)
	}
	if !record.OwnedBy(user.ID) {
		return nil, nil, domain.ErrAddressNotFound
	}
	return user, record, nil
}

// ensureAvailable 检查 addrview 尚未被占用。
// 检查与写入之间没有锁，并发写入由唯一索引兜底并同样翻译为已存在。
func ensureAvailable(ctx context.Context, addresses storage.AddressRepository, addrview string) error {
	_, err := addresses.GetAddressByAddrview(ctx, addrview)
	switch {
	case err == nil:
		return domain.ErrAddressExists
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return storeError(err, nil, nil)
	}
}
