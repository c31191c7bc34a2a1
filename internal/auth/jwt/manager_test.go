package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-development-32-chars-long-at-least"

func TestManager_GenerateAndValidate(t *testing.T) {
	m := NewManager(testSecret, "maildir", 15*time.Minute, 7*24*time.Hour)

	pair, err := m.GenerateTokenPair("u1", RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(15*60), pair.ExpiresIn)

	claims, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleUser, claims.Role)
	assert.Equal(t, "maildir", claims.Issuer)
}

func TestManager_UnknownRole(t *testing.T) {
	m := NewManager(testSecret, "maildir", time.Minute, time.Hour)

	_, err := m.GenerateTokenPair("u1", Role("root"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestManager_InvalidTokens(t *testing.T) {
	m := NewManager(testSecret, "maildir", time.Minute, time.Hour)

	t.Run("格式错误", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("签名密钥不同", func(t *testing.T) {
		other := NewManager("another-secret-key-that-is-also-32-chars-long", "maildir", time.Minute, time.Hour)
		pair, err := other.GenerateTokenPair("u1", RoleAdmin)
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("签发者不同", func(t *testing.T) {
		other := NewManager(testSecret, "someone-else", time.Minute, time.Hour)
		pair, err := other.GenerateTokenPair("u1", RoleAdmin)
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("已过期", func(t *testing.T) {
		expired := NewManager(testSecret, "maildir", -time.Minute, time.Hour)
		pair, err := expired.GenerateTokenPair("u1", RoleAdmin)
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestManager_RefreshAccessToken(t *testing.T) {
	m := NewManager(testSecret, "maildir", time.Minute, time.Hour)

	pair, err := m.GenerateTokenPair("admin-1", RoleAdmin)
	require.NoError(t, err)

	access, err := m.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestManager_TokenTypes(t *testing.T) {
	m := NewManager(testSecret, "maildir", time.Minute, time.Hour)

	pair, err := m.GenerateTokenPair("u1", RoleAdmin)
	require.NoError(t, err)

	access, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, access.Type)

	refresh, err := m.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, refresh.Type)

	t.Run("刷新令牌不能用于访问", func(t *testing.T) {
		_, err := m.ValidateAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("访问令牌不能用于刷新", func(t *testing.T) {
		_, err := m.RefreshAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("刷新得到的是访问令牌", func(t *testing.T) {
		token, err := m.RefreshAccessToken(pair.RefreshToken)
		require.NoError(t, err)

		claims, err := m.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, TokenAccess, claims.Type)

		_, err = m.RefreshAccessToken(token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})
}
