package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailplatform/backend/internal/domain"
)

func TestForwardedService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("唯一目标是自己时拒绝", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address: "loop@example.com",
			Targets: []string{"Lo.op@example.com"},
		})
		assert.ErrorIs(t, err, domain.ErrSelfForward)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("创建并反查目标归属", func(t *testing.T) {
		f := newFixture(t)
		f.createUser(t, "u1")
		f.userAddress(t, "u1", "bob@example.com", true)

		a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address: "Team@Example.com",
			Name:    "Team",
			Targets: []string{"bob@example.com", "https://hooks.example.com/in", "bob@example.com"},
			Tags:    []string{"ops"},
			Autoreply: &domain.Autoreply{
				Status:  true,
				Subject: "Away",
				Text:    "back soon",
			},
		})
		require.NoError(t, err)

		assert.True(t, a.IsForwarded())
		assert.Equal(t, "team@example.com", a.Address)
		require.Len(t, a.Targets, 2)
		assert.Equal(t, "u1", a.Targets[0].User)
		assert.Equal(t, domain.TargetHTTP, a.Targets[1].Type)
		assert.True(t, a.Autoreply.Status)
		assert.Equal(t, []string{"ops"}, a.TagsView)
	})

	t.Run("输入校验", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "x@example.com"})
		assert.ErrorIs(t, err, domain.ErrNoTargets)

		_, err = f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "x@example.com", Targets: []string{"y@example.com"}, Forwards: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidForwards)

		_, err = f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "x+y@example.com", Targets: []string{"y@example.com"}})
		assert.ErrorIs(t, err, domain.ErrAddressPlusNotAllowed)

		_, err = f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "*@example.com", Targets: []string{"y@example.com"}})
		assert.ErrorIs(t, err, domain.ErrWildcardNotAllowed)
	})

	t.Run("地址已被用户占用", func(t *testing.T) {
		f := newFixture(t)
		f.createUser(t, "u1")
		f.userAddress(t, "u1", "taken@example.com", true)

		_, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "ta.ken@example.com", Targets: []string{"y@example.com"}})
		assert.ErrorIs(t, err, domain.ErrAddressExists)
	})

	t.Run("通配转发地址", func(t *testing.T) {
		f := newFixture(t)

		a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address:       "*@catch.example.com",
			Targets:       []string{"inbox@example.com"},
			AllowWildcard: true,
		})
		require.NoError(t, err)
		assert.True(t, a.IsWildcard())
	})
}

func TestForwardedService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
		Address:  "fwd@example.com",
		Targets:  []string{"dest@elsewhere.org"},
		Forwards: 50,
	})
	require.NoError(t, err)

	got, err := f.forwarded.GetForwarded(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Limits.Forwards.Allowed)
	assert.Equal(t, int64(0), got.Limits.Forwards.Used)
	assert.False(t, got.Limits.Forwards.TTL.Set)

	f.counters.Set("wdf:"+a.ID, 12, time.Hour)
	got, err = f.forwarded.GetForwarded(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.Limits.Forwards.Used)
	assert.Equal(t, int64(3600), got.Limits.Forwards.TTL.Seconds)

	f.createUser(t, "u1")
	owned := f.userAddress(t, "u1", "owned@example.com", true)
	_, err = f.forwarded.GetForwarded(ctx, admin, owned.ID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
}

func TestForwardedService_Update(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *fixture) *domain.Address {
		a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address: "fwd@example.com",
			Targets: []string{"dest@example.com", "smtp://relay.example.com"},
		})
		require.NoError(t, err)
		return a
	}

	t.Run("更换目标与配额", func(t *testing.T) {
		f := newFixture(t)
		a := create(t, f)

		updated, err := f.forwarded.UpdateForwarded(ctx, admin, a.ID, UpdateForwardedInput{
			Targets:  []string{"new@example.com"},
			Forwards: ptr(10),
			Name:     ptr("Forward"),
		})
		require.NoError(t, err)
		require.Len(t, updated.Targets, 1)
		assert.Equal(t, "new@example.com", updated.Targets[0].Value)
		assert.Equal(t, 10, updated.Forwards)
		assert.Equal(t, "Forward", updated.Name)
	})

	t.Run("改名后与现有目标相同", func(t *testing.T) {
		f := newFixture(t)
		a := create(t, f)

		_, err := f.forwarded.UpdateForwarded(ctx, admin, a.ID, UpdateForwardedInput{Address: ptr("dest@example.com")})
		assert.ErrorIs(t, err, domain.ErrSelfForward)
	})

	t.Run("目标列表为空", func(t *testing.T) {
		f := newFixture(t)
		a := create(t, f)

		_, err := f.forwarded.UpdateForwarded(ctx, admin, a.ID, UpdateForwardedInput{Targets: []string{}})
		assert.ErrorIs(t, err, domain.ErrNoTargets)
	})

	t.Run("通配地址不能改名", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{
			Address:       "user@*",
			Targets:       []string{"dest@example.com"},
			AllowWildcard: true,
		})
		require.NoError(t, err)

		_, err = f.forwarded.UpdateForwarded(ctx, admin, a.ID, UpdateForwardedInput{Address: ptr("user@example.com")})
		assert.ErrorIs(t, err, domain.ErrWildcardRename)
		assert.Equal(t, domain.KindChangeNotAllowed, domain.KindOf(err))
	})
}

func TestForwardedService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.forwarded.CreateForwarded(ctx, admin, CreateForwardedInput{Address: "fwd@example.com", Targets: []string{"dest@example.com"}})
	require.NoError(t, err)

	require.NoError(t, f.forwarded.DeleteForwarded(ctx, admin, a.ID))

	err = f.forwarded.DeleteForwarded(ctx, admin, a.ID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	err = f.forwarded.DeleteForwarded(ctx, stranger, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
