package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

// Claims identify a user. Subject carries the username.
type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Username() string { return c.Subject }

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenManager issues and verifies access and refresh tokens, each signed with its own secret.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) GenerateAccessToken(userID, username string) (string, error) {
	return m.sign(userID, username, TokenTypeAccess, m.accessTTL, m.accessSecret)
}

func (m *TokenManager) GenerateRefreshToken(userID, username string) (string, error) {
	return m.sign(userID, username, TokenTypeRefresh, m.refreshTTL, m.refreshSecret)
}

func (m *TokenManager) GeneratePair(userID, username string) (TokenPair, error) {
	access, err := m.GenerateAccessToken(userID, username)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.GenerateRefreshToken(userID, username)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL / time.Second),
	}, nil
}

func (m *TokenManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenTypeAccess, m.accessSecret)
}

func (m *TokenManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenTypeRefresh, m.refreshSecret)
}

func (m *TokenManager) sign(userID, username, typ string, ttl time.Duration, secret []byte) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    userID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *TokenManager) parse(tokenStr, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.UserID == "" || claims.TokenType != typ {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
