package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/storage"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}

// tagPattern 匹配 JSON 数组列中的某个元素
func tagPattern(tag string) string {
	quoted, _ := json.Marshal(tag)
	return "%" + likeEscape(string(quoted)) + "%"
}

func tagClause(tags []string, joiner string) (string, []interface{}) {
	clauses := make([]string, len(tags))
	args := make([]interface{}, len(tags))
	for i, tag := range tags {
		clauses[i] = "tagsview LIKE ?"
		args[i] = tagPattern(tag)
	}
	return "(" + strings.Join(clauses, joiner) + ")", args
}

func addressScope(f storage.AddressFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.UserID != "" {
			db = db.Where("user_id = ?", f.UserID)
		}
		switch {
		case f.Query != "" && f.AddressQuery != "":
			db = db.Where("(addrview LIKE ? OR LOWER(address) LIKE ?)",
				"%"+likeEscape(f.Query)+"%", "%"+likeEscape(f.AddressQuery)+"%")
		case f.Query != "":
			db = db.Where("addrview LIKE ?", "%"+likeEscape(f.Query)+"%")
		case f.AddressQuery != "":
			db = db.Where("LOWER(address) LIKE ?", "%"+likeEscape(f.AddressQuery)+"%")
		}
		if f.OnlyForwarded || f.Forward != "" {
			db = db.Where("user_id IS NULL")
		}
		if f.Forward != "" {
			db = db.Where("targetvalues LIKE ?", "%"+likeEscape(strings.ToLower(f.Forward))+"%")
		}
		if len(f.AnyTags) > 0 {
			clause, args := tagClause(f.AnyTags, " OR ")
			db = db.Where(clause, args...)
		}
		if len(f.RequiredTags) > 0 {
			clause, args := tagClause(f.RequiredTags, " AND ")
			db = db.Where(clause, args...)
		}
		return db
	}
}

func windowScope(column string, w pagination.Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if w.Backward {
			return db.Where(column+" < ?", w.Before).Order(column + " DESC").Limit(w.Fetch())
		}
		if w.After != "" {
			db = db.Where(column+" > ?", w.After)
		}
		return db.Order(column + " ASC").Limit(w.Fetch())
	}
}

// ========== Address Repository ==========

// InsertAddress 新增地址
func (s *Store) InsertAddress(ctx context.Context, address *domain.Address) error {
	address.TargetValues = address.TargetSearchText()
	return translate(s.db.WithContext(ctx).Create(address).Error)
}

// GetAddress 根据 ID 获取地址
func (s *Store) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	var address domain.Address
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&address).Error; err != nil {
		return nil, translate(err)
	}
	return &address, nil
}

// GetAddressByAddrview 根据规范视图获取地址
func (s *Store) GetAddressByAddrview(ctx context.Context, addrview string) (*domain.Address, error) {
	var address domain.Address
	if err := s.db.WithContext(ctx).Where("addrview = ?", addrview).First(&address).Error; err != nil {
		return nil, translate(err)
	}
	return &address, nil
}

// FindAddressesByAddrviews 批量按规范视图查找
func (s *Store) FindAddressesByAddrviews(ctx context.Context, addrviews []string) ([]domain.Address, error) {
	addresses := make([]domain.Address, 0)
	if len(addrviews) == 0 {
		return addresses, nil
	}
	err := s.db.WithContext(ctx).Where("addrview IN ?", addrviews).Find(&addresses).Error
	return addresses, translate(err)
}

// ListAddresses 按窗口返回一页地址
func (s *Store) ListAddresses(ctx context.Context, filter storage.AddressFilter, window pagination.Window) ([]domain.Address, error) {
	addresses := make([]domain.Address, 0)
	err := s.db.WithContext(ctx).
		Scopes(addressScope(filter), windowScope("addrview", window)).
		Find(&addresses).Error
	return addresses, translate(err)
}

// CountAddresses 统计满足条件的地址数量
func (s *Store) CountAddresses(ctx context.Context, filter storage.AddressFilter) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Address{}).Scopes(addressScope(filter)).Count(&count).Error
	return count, translate(err)
}

// ListAddressesByUser 返回用户的全部地址
func (s *Store) ListAddressesByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	addresses := make([]domain.Address, 0)
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("addrview ASC").Find(&addresses).Error
	return addresses, translate(err)
}

// UpdateAddress 整体替换地址记录（created 不变）
func (s *Store) UpdateAddress(ctx context.Context, address *domain.Address) error {
	address.TargetValues = address.TargetSearchText()
	return translate(s.db.WithContext(ctx).Model(address).Select("*").Omit("id", "created").Updates(address).Error)
}

// DeleteAddress 删除地址
func (s *Store) DeleteAddress(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Address{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// StreamAddressesByDomain 分批读取 addrview 以 "@domain" 结尾的地址
func (s *Store) StreamAddressesByDomain(ctx context.Context, domainName string, batchSize int, fn func([]domain.Address) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	var batch []domain.Address
	result := s.db.WithContext(ctx).
		Where("addrview LIKE ?", "%@"+likeEscape(domainName)).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return translate(result.Error)
}

// bulkBatchSize 单条 CASE 语句最多改写的行数
const bulkBatchSize = 100

// BulkUpdateAddresses 按批用一条 CASE 语句改名；整批失败时逐条重试，单条失败不影响其它
func (s *Store) BulkUpdateAddresses(ctx context.Context, updates []storage.AddressUpdate) storage.BulkResult {
	var result storage.BulkResult
	for start := 0; start < len(updates); start += bulkBatchSize {
		chunk := updates[start:min(start+bulkBatchSize, len(updates))]
		n, err := s.updateAddressBatch(ctx, chunk)
		if err == nil {
			result.Modified += n
			continue
		}
		for i, u := range chunk {
			res := s.db.WithContext(ctx).Model(&domain.Address{}).
				Where("id = ?", u.ID).
				Updates(map[string]interface{}{"address": u.Address, "addrview": u.Addrview})
			if res.Error != nil {
				result.Errors = append(result.Errors, storage.BulkItemError{Index: start + i, Err: translate(res.Error)})
				continue
			}
			result.Modified += res.RowsAffected
		}
	}
	return result
}

func (s *Store) updateAddressBatch(ctx context.Context, chunk []storage.AddressUpdate) (int64, error) {
	ids := make([]string, len(chunk))
	var address, addrview strings.Builder
	addressArgs := make([]interface{}, 0, 2*len(chunk))
	addrviewArgs := make([]interface{}, 0, 2*len(chunk))
	address.WriteString("CASE id")
	addrview.WriteString("CASE id")
	for i, u := range chunk {
		ids[i] = u.ID
		address.WriteString(" WHEN ? THEN ?")
		addrview.WriteString(" WHEN ? THEN ?")
		addressArgs = append(addressArgs, u.ID, u.Address)
		addrviewArgs = append(addrviewArgs, u.ID, u.Addrview)
	}
	address.WriteString(" END")
	addrview.WriteString(" END")

	res := s.db.WithContext(ctx).Model(&domain.Address{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"address":  gorm.Expr(address.String(), addressArgs...),
			"addrview": gorm.Expr(addrview.String(), addrviewArgs...),
		})
	return res.RowsAffected, res.Error
}
