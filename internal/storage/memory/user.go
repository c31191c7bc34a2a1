package memory

import (
	"context"
	"sort"
	"strings"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

// ========== User Repository ==========

// CreateUser 新增用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return storage.ErrDuplicateKey
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

// GetUser 根据 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *u
	return &c, nil
}

// SetUserAddress 修改用户主地址
func (s *Store) SetUserAddress(ctx context.Context, id, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Address = address
	return nil
}

// BulkUpdateUserAddresses 仅当用户当前主地址等于旧值时改写
func (s *Store) BulkUpdateUserAddresses(ctx context.Context, updates []storage.UserAddressUpdate) storage.BulkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result storage.BulkResult
	for i, u := range updates {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, storage.BulkItemError{Index: i, Err: err})
			continue
		}
		user, ok := s.users[u.UserID]
		if !ok || user.Address != u.OldAddress {
			continue
		}
		user.Address = u.NewAddress
		result.Modified++
	}
	return result
}

// ========== DKIM Repository ==========

// SaveDKIMKey 保存 DKIM 记录
func (s *Store) SaveDKIMKey(ctx context.Context, key *domain.DKIMKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *key
	s.dkim[key.ID] = &c
	return nil
}

// ListDKIMKeysByDomain 返回某域名的 DKIM 记录
func (s *Store) ListDKIMKeysByDomain(ctx context.Context, domainName string) ([]domain.DKIMKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DKIMKey, 0)
	for _, k := range s.dkim {
		if k.Domain == domainName {
			result = append(result, *k)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Selector < result[j].Selector })
	return result, nil
}

// RenameDKIMDomain 批量修改 DKIM 记录的域名
func (s *Store) RenameDKIMDomain(ctx context.Context, oldDomain, newDomain string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, k := range s.dkim {
		if k.Domain == oldDomain {
			k.Domain = newDomain
			n++
		}
	}
	return n, nil
}

// ========== DomainAlias Repository ==========

// InsertDomainAlias 新增域名别名，alias 重复时返回 ErrDuplicateKey
func (s *Store) InsertDomainAlias(ctx context.Context, alias *domain.DomainAlias) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAlias[alias.Alias]; ok {
		return storage.ErrDuplicateKey
	}
	c := *alias
	s.aliases[alias.ID] = &c
	s.byAlias[alias.Alias] = alias.ID
	return nil
}

// GetDomainAlias 根据 ID 获取域名别名
func (s *Store) GetDomainAlias(ctx context.Context, id string) (*domain.DomainAlias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.aliases[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *a
	return &c, nil
}

// GetDomainAliasByAlias 根据别名域获取记录
func (s *Store) GetDomainAliasByAlias(ctx context.Context, alias string) (*domain.DomainAlias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAlias[alias]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *s.aliases[id]
	return &c, nil
}

func (s *Store) sortedAliasesLocked(query string) []*domain.DomainAlias {
	result := make([]*domain.DomainAlias, 0, len(s.aliases))
	for _, a := range s.aliases {
		if query == "" || strings.Contains(a.Alias, query) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Alias < result[j].Alias })
	return result
}

// ListDomainAliases 按窗口返回一页域名别名
func (s *Store) ListDomainAliases(ctx context.Context, query string, window pagination.Window) ([]domain.DomainAlias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return windowed(s.sortedAliasesLocked(query), window,
		func(a *domain.DomainAlias) string { return a.Alias },
		func(a *domain.DomainAlias) domain.DomainAlias { return *a }), nil
}

// CountDomainAliases 统计域名别名数量
func (s *Store) CountDomainAliases(ctx context.Context, query string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.sortedAliasesLocked(query))), nil
}

// DeleteDomainAlias 删除域名别名
func (s *Store) DeleteDomainAlias(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.aliases[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byAlias, a.Alias)
	delete(s.aliases, id)
	return nil
}

// RenameDomainAliasTarget 批量修改别名指向的域名
func (s *Store) RenameDomainAliasTarget(ctx context.Context, oldDomain, newDomain string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.aliases {
		if a.Domain == oldDomain {
			a.Domain = newDomain
			n++
		}
	}
	return n, nil
}
