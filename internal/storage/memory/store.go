package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

// Store 使用内存保存目录数据，主要用于开发验证与单元测试。
type Store struct {
	mu         sync.RWMutex
	addresses  map[string]*domain.Address     // addressID -> address
	byAddrview map[string]string              // addrview -> addressID
	users      map[string]*domain.User        // userID -> user
	aliases    map[string]*domain.DomainAlias // aliasID -> alias
	byAlias    map[string]string              // alias -> aliasID
	dkim       map[string]*domain.DKIMKey     // keyID -> key
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		addresses:  make(map[string]*domain.Address),
		byAddrview: make(map[string]string),
		users:      make(map[string]*domain.User),
		aliases:    make(map[string]*domain.DomainAlias),
		byAlias:    make(map[string]string),
		dkim:       make(map[string]*domain.DKIMKey),
	}
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终可用
func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

func cloneAddress(a *domain.Address) domain.Address {
	c := *a
	if a.UserID != nil {
		id := *a.UserID
		c.UserID = &id
	}
	c.Targets = append([]domain.Target(nil), a.Targets...)
	c.Tags = append([]string(nil), a.Tags...)
	c.TagsView = append([]string(nil), a.TagsView...)
	return c
}

// ========== Address Repository ==========

// InsertAddress 新增地址，addrview 重复时返回 ErrDuplicateKey
func (s *Store) InsertAddress(ctx context.Context, address *domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAddrview[address.Addrview]; ok {
		return storage.ErrDuplicateKey
	}
	if _, ok := s.addresses[address.ID]; ok {
		return storage.ErrDuplicateKey
	}
	c := cloneAddress(address)
	s.addresses[address.ID] = &c
	s.byAddrview[address.Addrview] = address.ID
	return nil
}

// GetAddress 根据 ID 获取地址
func (s *Store) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := cloneAddress(a)
	return &c, nil
}

// GetAddressByAddrview 根据规范视图获取地址
func (s *Store) GetAddressByAddrview(ctx context.Context, addrview string) (*domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddrview[addrview]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := cloneAddress(s.addresses[id])
	return &c, nil
}

// FindAddressesByAddrviews 批量按规范视图查找
func (s *Store) FindAddressesByAddrviews(ctx context.Context, addrviews []string) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Address, 0, len(addrviews))
	seen := make(map[string]struct{}, len(addrviews))
	for _, view := range addrviews {
		if _, dup := seen[view]; dup {
			continue
		}
		seen[view] = struct{}{}
		if id, ok := s.byAddrview[view]; ok {
			result = append(result, cloneAddress(s.addresses[id]))
		}
	}
	return result, nil
}

func matchesQuery(a *domain.Address, f storage.AddressFilter) bool {
	if f.Query != "" && strings.Contains(a.Addrview, f.Query) {
		return true
	}
	return f.AddressQuery != "" && strings.Contains(strings.ToLower(a.Address), f.AddressQuery)
}

func matchesFilter(a *domain.Address, f storage.AddressFilter) bool {
	if f.UserID != "" && !a.OwnedBy(f.UserID) {
		return false
	}
	if (f.Query != "" || f.AddressQuery != "") && !matchesQuery(a, f) {
		return false
	}
	if f.OnlyForwarded && !a.IsForwarded() {
		return false
	}
	if f.Forward != "" {
		if !a.IsForwarded() {
			return false
		}
		needle := strings.ToLower(f.Forward)
		found := false
		for _, t := range a.Targets {
			if strings.Contains(strings.ToLower(t.Value), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.AnyTags) > 0 || len(f.RequiredTags) > 0 {
		tags := make(map[string]struct{}, len(a.TagsView))
		for _, t := range a.TagsView {
			tags[t] = struct{}{}
		}
		if len(f.AnyTags) > 0 {
			hit := false
			for _, t := range f.AnyTags {
				if _, ok := tags[t]; ok {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
		for _, t := range f.RequiredTags {
			if _, ok := tags[t]; !ok {
				return false
			}
		}
	}
	return true
}

// sortedAddressesLocked 按 addrview 升序返回满足条件的地址
func (s *Store) sortedAddressesLocked(f storage.AddressFilter) []*domain.Address {
	result := make([]*domain.Address, 0)
	for _, a := range s.addresses {
		if matchesFilter(a, f) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Addrview < result[j].Addrview
	})
	return result
}

// ListAddresses 按窗口返回一页地址
func (s *Store) ListAddresses(ctx context.Context, filter storage.AddressFilter, window pagination.Window) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedAddressesLocked(filter)
	return windowed(sorted, window, func(a *domain.Address) string { return a.Addrview }, cloneAddress), nil
}

// CountAddresses 统计满足条件的地址数量
func (s *Store) CountAddresses(ctx context.Context, filter storage.AddressFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, a := range s.addresses {
		if matchesFilter(a, filter) {
			count++
		}
	}
	return count, nil
}

// ListAddressesByUser 返回用户的全部地址
func (s *Store) ListAddressesByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedAddressesLocked(storage.AddressFilter{UserID: userID})
	result := make([]domain.Address, 0, len(sorted))
	for _, a := range sorted {
		result = append(result, cloneAddress(a))
	}
	return result, nil
}

// UpdateAddress 整体替换地址记录
func (s *Store) UpdateAddress(ctx context.Context, address *domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.addresses[address.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if id, taken := s.byAddrview[address.Addrview]; taken && id != address.ID {
		return storage.ErrDuplicateKey
	}
	delete(s.byAddrview, existing.Addrview)
	c := cloneAddress(address)
	s.addresses[address.ID] = &c
	s.byAddrview[address.Addrview] = address.ID
	return nil
}

// DeleteAddress 删除地址
func (s *Store) DeleteAddress(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byAddrview, a.Addrview)
	delete(s.addresses, id)
	return nil
}

// StreamAddressesByDomain 分批回调指定域名下的地址
func (s *Store) StreamAddressesByDomain(ctx context.Context, domainName string, batchSize int, fn func([]domain.Address) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	suffix := "@" + domainName

	s.mu.RLock()
	matched := make([]domain.Address, 0)
	for _, a := range s.sortedAddressesLocked(storage.AddressFilter{}) {
		if strings.HasSuffix(a.Addrview, suffix) {
			matched = append(matched, cloneAddress(a))
		}
	}
	s.mu.RUnlock()

	for start := 0; start < len(matched); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(matched) {
			end = len(matched)
		}
		if err := fn(matched[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpdateAddresses 无序批量改名
func (s *Store) BulkUpdateAddresses(ctx context.Context, updates []storage.AddressUpdate) storage.BulkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result storage.BulkResult
	for i, u := range updates {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, storage.BulkItemError{Index: i, Err: err})
			continue
		}
		a, ok := s.addresses[u.ID]
		if !ok {
			continue
		}
		if id, taken := s.byAddrview[u.Addrview]; taken && id != u.ID {
			result.Errors = append(result.Errors, storage.BulkItemError{Index: i, Err: storage.ErrDuplicateKey})
			continue
		}
		delete(s.byAddrview, a.Addrview)
		a.Address = u.Address
		a.Addrview = u.Addrview
		s.byAddrview[u.Addrview] = u.ID
		result.Modified++
	}
	return result
}

// windowed 对已排序的集合应用分页窗口
func windowed[T any, R any](sorted []*T, w pagination.Window, key func(*T) string, clone func(*T) R) []R {
	result := make([]R, 0, w.Fetch())
	if w.Backward {
		for i := len(sorted) - 1; i >= 0 && len(result) < w.Fetch(); i-- {
			if key(sorted[i]) < w.Before {
				result = append(result, clone(sorted[i]))
			}
		}
		return result
	}
	for _, item := range sorted {
		if len(result) == w.Fetch() {
			break
		}
		if w.After == "" || key(item) > w.After {
			result = append(result, clone(item))
		}
	}
	return result
}
