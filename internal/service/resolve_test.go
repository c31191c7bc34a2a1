package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailplatform/backend/internal/domain"
)

func TestResolver_ResolveAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "u1")
	alice := f.userAddress(t, "u1", "alice@example.com", true)

	wildcard := func(address string) *domain.Address {
		a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address:       address,
			Targets:       []string{"catchall@elsewhere.org"},
			AllowWildcard: true,
		})
		require.NoError(t, err)
		return a
	}
	anyUser := wildcard("*@example.com")
	suffix := wildcard("*ob@example.com")
	anyDomain := wildcard("postmaster@*")

	_, err := f.aliases.CreateDomainAlias(ctx, admin, "alias.example.org", "example.com")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		input  string
		opts   ResolveOptions
		wantID string
		match  MatchKind
	}{
		{"按ID查找", alice.ID, ResolveOptions{}, alice.ID, MatchID},
		{"精确匹配忽略点号与大小写", "Al.ice@Example.COM", ResolveOptions{}, alice.ID, MatchExact},
		{"域名别名替换", "alice@alias.example.org", ResolveOptions{}, alice.ID, MatchAlias},
		{"后缀通配优先", "rob@example.com", ResolveOptions{AllowWildcard: true}, suffix.ID, MatchWildcard},
		{"域内通配", "zed@example.com", ResolveOptions{AllowWildcard: true}, anyUser.ID, MatchWildcard},
		{"别名域名上的通配", "zed@alias.example.org", ResolveOptions{AllowWildcard: true}, anyUser.ID, MatchWildcard},
		{"任意域名通配", "postmaster@anything.net", ResolveOptions{AllowWildcard: true}, anyDomain.ID, MatchWildcard},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.resolver.ResolveAddress(ctx, admin, tc.input, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, got.ID)
			assert.Equal(t, tc.match, got.Match)
		})
	}

	t.Run("用户地址不带配额", func(t *testing.T) {
		got, err := f.resolver.ResolveAddress(ctx, admin, "alice@example.com", ResolveOptions{})
		require.NoError(t, err)
		assert.Nil(t, got.Limits)
	})

	t.Run("转发地址附带配额快照", func(t *testing.T) {
		got, err := f.resolver.ResolveAddress(ctx, admin, "zed@example.com", ResolveOptions{AllowWildcard: true})
		require.NoError(t, err)
		require.NotNil(t, got.Limits)
		assert.Equal(t, 2000, got.Limits.Forwards.Allowed)
	})

	t.Run("未允许通配时不命中", func(t *testing.T) {
		_, err := f.resolver.ResolveAddress(ctx, admin, "zed@example.com", ResolveOptions{})
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("非法输入", func(t *testing.T) {
		_, err := f.resolver.ResolveAddress(ctx, admin, "@", ResolveOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)

		_, err = f.resolver.ResolveAddress(ctx, admin, "  ", ResolveOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})

	t.Run("未授权的调用方", func(t *testing.T) {
		_, err := f.resolver.ResolveAddress(ctx, stranger, "alice@example.com", ResolveOptions{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
