// auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken(42, "kasparov")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "kasparov", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	m := newTestManager()

	refresh, err := m.GenerateRefreshToken(42, "kasparov")
	require.NoError(t, err)

	// 刷新令牌用的是另一把密钥，直接当访问令牌用必须失败
	_, err = m.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestRefreshAccessToken(t *testing.T) {
	m := newTestManager()

	refresh, err := m.GenerateRefreshToken(7, "deepblue")
	require.NoError(t, err)

	access, err := m.RefreshAccessToken(refresh)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "deepblue", claims.Username)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewJWTManager("s1", "s2", -time.Minute, -time.Minute)

	token, err := m.GenerateAccessToken(1, "ghost")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken(1, "mallory")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token + "x")
	assert.Error(t, err)
}
