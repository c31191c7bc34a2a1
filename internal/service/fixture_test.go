package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/storage/memory"
)

var (
	admin    = domain.Caller{ID: "admin", Allowed: true}
	stranger = domain.Caller{ID: "stranger", Allowed: false}
)

var testDirectory = config.DirectoryConfig{
	DefaultForwards:   2000,
	MaxWildcardSuffix: 32,
	DefaultPageLimit:  20,
	MaxPageLimit:      250,
	RenameBatchSize:   1,
}

// fixture 基于内存存储组装全部服务
type fixture struct {
	store     *memory.Store
	counters  *memory.CounterStore
	quota     *ForwardQuotaTracker
	targets   *TargetResolver
	addresses *AddressService
	forwarded *ForwardedService
	resolver  *Resolver
	aliases   *DomainAliasService
	rename    *DomainRenameMigrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zaptest.NewLogger(t)
	store := memory.NewStore()
	counters := memory.NewCounterStore()
	quota := NewForwardQuotaTracker(counters, "wdf:", testDirectory.DefaultForwards, log)
	targets := NewTargetResolver(store)

	return &fixture{
		store:     store,
		counters:  counters,
		quota:     quota,
		targets:   targets,
		addresses: NewAddressService(store, testDirectory, log),
		forwarded: NewForwardedService(store, targets, quota, testDirectory, log),
		resolver:  NewResolver(store, quota, testDirectory, log),
		aliases:   NewDomainAliasService(store, testDirectory, log),
		rename:    NewDomainRenameMigrator(store, testDirectory, log),
	}
}

// createUser 新建一个还没有主地址的用户
func (f *fixture) createUser(t *testing.T, id string) *domain.User {
	t.Helper()
	user := &domain.User{ID: id, Username: id, Created: time.Now().UTC()}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) userAddress(t *testing.T, userID, address string, main bool) *UserAddress {
	t.Helper()
	a, err := f.addresses.CreateUserAddress(context.Background(), admin, userID, CreateUserAddressInput{
		Address: address,
		Main:    main,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) mainAddress(t *testing.T, userID string) string {
	t.Helper()
	user, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Address
}
