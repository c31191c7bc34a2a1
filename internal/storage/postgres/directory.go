package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

// ========== User Repository ==========

// CreateUser 新增用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

// GetUser 根据 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SetUserAddress 修改用户主地址
func (s *Store) SetUserAddress(ctx context.Context, id, address string) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("address", address)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return storage.ErrNotFound
		}
	}
	return nil
}

// BulkUpdateUserAddresses 仅当用户当前主地址等于旧值时改写；按批执行，整批失败时逐条重试
func (s *Store) BulkUpdateUserAddresses(ctx context.Context, updates []storage.UserAddressUpdate) storage.BulkResult {
	var result storage.BulkResult
	for start := 0; start < len(updates); start += bulkBatchSize {
		chunk := updates[start:min(start+bulkBatchSize, len(updates))]
		n, err := s.updateUserAddressBatch(ctx, chunk)
		if err == nil {
			result.Modified += n
			continue
		}
		for i, u := range chunk {
			res := s.db.WithContext(ctx).Model(&domain.User{}).
				Where("id = ? AND address = ?", u.UserID, u.OldAddress).
				Update("address", u.NewAddress)
			if res.Error != nil {
				result.Errors = append(result.Errors, storage.BulkItemError{Index: start + i, Err: translate(res.Error)})
				continue
			}
			result.Modified += res.RowsAffected
		}
	}
	return result
}

func (s *Store) updateUserAddressBatch(ctx context.Context, chunk []storage.UserAddressUpdate) (int64, error) {
	conds := make([]string, len(chunk))
	condArgs := make([]interface{}, 0, 2*len(chunk))
	var value strings.Builder
	valueArgs := make([]interface{}, 0, 3*len(chunk))
	value.WriteString("CASE")
	for i, u := range chunk {
		conds[i] = "(id = ? AND address = ?)"
		condArgs = append(condArgs, u.UserID, u.OldAddress)
		value.WriteString(" WHEN id = ? AND address = ? THEN ?")
		valueArgs = append(valueArgs, u.UserID, u.OldAddress, u.NewAddress)
	}
	value.WriteString(" ELSE address END")

	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where(strings.Join(conds, " OR "), condArgs...).
		Update("address", gorm.Expr(value.String(), valueArgs...))
	return res.RowsAffected, res.Error
}

// ========== DKIM Repository ==========

// SaveDKIMKey 保存 DKIM 记录
func (s *Store) SaveDKIMKey(ctx context.Context, key *domain.DKIMKey) error {
	return translate(s.db.WithContext(ctx).Save(key).Error)
}

// ListDKIMKeysByDomain 返回某域名的 DKIM 记录
func (s *Store) ListDKIMKeysByDomain(ctx context.Context, domainName string) ([]domain.DKIMKey, error) {
	keys := make([]domain.DKIMKey, 0)
	err := s.db.WithContext(ctx).Where("domain = ?", domainName).Order("selector ASC").Find(&keys).Error
	return keys, translate(err)
}

// RenameDKIMDomain 批量修改 DKIM 记录的域名
func (s *Store) RenameDKIMDomain(ctx context.Context, oldDomain, newDomain string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&domain.DKIMKey{}).Where("domain = ?", oldDomain).Update("domain", newDomain)
	return result.RowsAffected, translate(result.Error)
}

// ========== DomainAlias Repository ==========

// InsertDomainAlias 新增域名别名
func (s *Store) InsertDomainAlias(ctx context.Context, alias *domain.DomainAlias) error {
	return translate(s.db.WithContext(ctx).Create(alias).Error)
}

// GetDomainAlias 根据 ID 获取域名别名
func (s *Store) GetDomainAlias(ctx context.Context, id string) (*domain.DomainAlias, error) {
	var alias domain.DomainAlias
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&alias).Error; err != nil {
		return nil, translate(err)
	}
	return &alias, nil
}

// GetDomainAliasByAlias 根据别名域获取记录
func (s *Store) GetDomainAliasByAlias(ctx context.Context, aliasDomain string) (*domain.DomainAlias, error) {
	var alias domain.DomainAlias
	if err := s.db.WithContext(ctx).Where("alias = ?", aliasDomain).First(&alias).Error; err != nil {
		return nil, translate(err)
	}
	return &alias, nil
}

// ListDomainAliases 按窗口返回一页域名别名
func (s *Store) ListDomainAliases(ctx context.Context, query string, window pagination.Window) ([]domain.DomainAlias, error) {
	aliases := make([]domain.DomainAlias, 0)
	db := s.db.WithContext(ctx)
	if query != "" {
		db = db.Where("alias LIKE ?", "%"+likeEscape(query)+"%")
	}
	err := db.Scopes(windowScope("alias", window)).Find(&aliases).Error
	return aliases, translate(err)
}

// CountDomainAliases 统计域名别名数量
func (s *Store) CountDomainAliases(ctx context.Context, query string) (int64, error) {
	var count int64
	db := s.db.WithContext(ctx).Model(&domain.DomainAlias{})
	if query != "" {
		db = db.Where("alias LIKE ?", "%"+likeEscape(query)+"%")
	}
	err := db.Count(&count).Error
	return count, translate(err)
}

// DeleteDomainAlias 删除域名别名
func (s *Store) DeleteDomainAlias(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.DomainAlias{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RenameDomainAliasTarget 批量修改别名指向的域名
func (s *Store) RenameDomainAliasTarget(ctx context.Context, oldDomain, newDomain string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&domain.DomainAlias{}).Where("domain = ?", oldDomain).Update("domain", newDomain)
	return result.RowsAffected, translate(result.Error)
}
