package storage

import (
	"context"
	"errors"
	"time"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/pagination"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey 违反唯一索引
	ErrDuplicateKey = errors.New("duplicate key")
)

// AddressFilter 地址列表过滤条件，零值表示不过滤
type AddressFilter struct {
	UserID        string   // 只列出该用户的地址
	Query         string   // addrview 子串
	AddressQuery  string   // address 子串（小写），与 Query 任一命中即可
	AnyTags       []string // tagsview 命中任意一个
	RequiredTags  []string // tagsview 必须全部包含
	Forward       string   // 转发目标子串
	OnlyForwarded bool     // 只列出转发地址
}

// AddressUpdate 批量改名中的一项
type AddressUpdate struct {
	ID       string
	Address  string
	Addrview string
}

// UserAddressUpdate 批量修改用户主地址中的一项，仅当用户当前主地址等于 OldAddress 时生效
type UserAddressUpdate struct {
	UserID     string
	OldAddress string
	NewAddress string
}

// BulkItemError 批量操作中单项失败
type BulkItemError struct {
	Index int
	Err   error
}

// BulkResult 无序批量操作结果，单项失败不影响其它项
type BulkResult struct {
	Modified int64
	Errors   []BulkItemError
}

// AddressRepository 定义地址数据存取操作。
type AddressRepository interface {
	InsertAddress(ctx context.Context, address *domain.Address) error
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
	GetAddressByAddrview(ctx context.Context, addrview string) (*domain.Address, error)
	FindAddressesByAddrviews(ctx context.Context, addrviews []string) ([]domain.Address, error)
	ListAddresses(ctx context.Context, filter AddressFilter, window pagination.Window) ([]domain.Address, error)
	CountAddresses(ctx context.Context, filter AddressFilter) (int64, error)
	ListAddressesByUser(ctx context.Context, userID string) ([]domain.Address, error)
	UpdateAddress(ctx context.Context, address *domain.Address) error
	DeleteAddress(ctx context.Context, id string) error
	// StreamAddressesByDomain 分批回调所有 addrview 以 "@domain" 结尾的地址
	StreamAddressesByDomain(ctx context.Context, domainName string, batchSize int, fn func([]domain.Address) error) error
	BulkUpdateAddresses(ctx context.Context, updates []AddressUpdate) BulkResult
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	SetUserAddress(ctx context.Context, id, address string) error
	BulkUpdateUserAddresses(ctx context.Context, updates []UserAddressUpdate) BulkResult
}

// DKIMRepository 定义 DKIM 记录存取操作。
type DKIMRepository interface {
	SaveDKIMKey(ctx context.Context, key *domain.DKIMKey) error
	ListDKIMKeysByDomain(ctx context.Context, domainName string) ([]domain.DKIMKey, error)
	RenameDKIMDomain(ctx context.Context, oldDomain, newDomain string) (int64, error)
}

// DomainAliasRepository 定义域名别名存取操作。
type DomainAliasRepository interface {
	InsertDomainAlias(ctx context.Context, alias *domain.DomainAlias) error
	GetDomainAlias(ctx context.Context, id string) (*domain.DomainAlias, error)
	GetDomainAliasByAlias(ctx context.Context, alias string) (*domain.DomainAlias, error)
	ListDomainAliases(ctx context.Context, query string, window pagination.Window) ([]domain.DomainAlias, error)
	CountDomainAliases(ctx context.Context, query string) (int64, error)
	DeleteDomainAlias(ctx context.Context, id string) error
	RenameDomainAliasTarget(ctx context.Context, oldDomain, newDomain string) (int64, error)
}

// Store 定义完整的目录存储接口。
type Store interface {
	AddressRepository
	UserRepository
	DKIMRepository
	DomainAliasRepository

	Close() error
	Health(ctx context.Context) error
}

// Counter 计数器读数
type Counter struct {
	Value  int64
	Exists bool
	TTL    time.Duration // 仅当 HasTTL 时有效
	HasTTL bool
}

// CounterStore 带过期时间的计数器存储，由投递子系统写入
type CounterStore interface {
	GetCounter(ctx context.Context, key string) (Counter, error)
}
