package middleware

import (
	"net/http"
	"strings"

	"taskify/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
)

// TokenVerifier is satisfied by *auth.TokenManager.
type TokenVerifier interface {
	ParseAccessToken(tokenStr string) (*auth.Claims, error)
}

// JWTAuthMiddleware checks the bearer access token and stores the caller's
// id and username in the gin context.
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "kind": "unauthorized"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "kind": "unauthorized"})
			return
		}

		claims, err := verifier.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "kind": "unauthorized"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token", "kind": "unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, claims.Username())
		c.Next()
	}
}

// Username returns the authenticated caller set by JWTAuthMiddleware.
func Username(c *gin.Context) (string, bool) {
	v, ok := c.Get(UsernameKey)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}
