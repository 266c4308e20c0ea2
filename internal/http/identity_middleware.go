package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ownerKeyContextKey = "owner_key"

// IdentityMiddleware resolves the caller's owner key. Authentication itself
// lives in the platform gateway; here we only extract the identity it issued.
// With a configured secret the key is the JWT subject; without one (local
// development) the X-User-ID header is trusted.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			owner := strings.TrimSpace(c.GetHeader("X-User-ID"))
			if owner == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
				c.Abort()
				return
			}
			c.Set(ownerKeyContextKey, owner)
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimSpace(header[len("Bearer "):])
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(ownerKeyContextKey, claims.Subject)
		c.Next()
	}
}

// OwnerKey returns the resolved caller identity.
func OwnerKey(c *gin.Context) (string, bool) {
	val, ok := c.Get(ownerKeyContextKey)
	if !ok {
		return "", false
	}
	owner, ok := val.(string)
	return owner, ok && owner != ""
}
