// Package auth guards the ops HTTP surface with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Guard struct {
	token      string
	headerName string
}

// NewGuard returns a guard for token. An empty token disables the check.
func NewGuard(token string) *Guard {
	return &Guard{token: strings.TrimSpace(token), headerName: "Authorization"}
}

func (g *Guard) Enabled() bool { return g != nil && g.token != "" }

// Middleware rejects requests whose bearer token does not match.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Enabled() {
			c.Next()
			return
		}
		token := g.extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(g.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (g *Guard) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(g.headerName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
