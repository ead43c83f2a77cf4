package auth_test

import (
	"testing"
	"time"

	"taskify/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key", "test-refresh-key", time.Hour, 24*time.Hour)
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newManager()

	token, err := m.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)
}

func TestGeneratePair(t *testing.T) {
	m := newManager()

	pair, err := m.GeneratePair("user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := m.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.NotEmpty(t, claims.ID)

	// a refresh token must never authorize a request
	_, err = m.ParseAccessToken(pair.RefreshToken)
	assert.Error(t, err)

	second, err := m.GeneratePair("user-1", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, second.RefreshToken)
}

func TestParseToken_InvalidToken(t *testing.T) {
	_, err := newManager().ParseAccessToken("invalid-token")

	assert.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_ExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "alice",
		"uid": "user-1",
		"typ": auth.TokenTypeAccess,
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString([]byte("test-secret-key"))

	_, err := newManager().ParseAccessToken(expiredToken)

	assert.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_MissingClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"typ": auth.TokenTypeAccess,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenWithoutUser, _ := token.SignedString([]byte("test-secret-key"))

	_, err := newManager().ParseAccessToken(tokenWithoutUser)

	assert.Error(t, err)
	assert.Equal(t, "invalid claims", err.Error())
}

func TestParseToken_WrongSecret(t *testing.T) {
	other := auth.NewTokenManager("another-secret", "another-refresh", time.Hour, time.Hour)
	token, err := other.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)

	_, err = newManager().ParseAccessToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "password123"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}
