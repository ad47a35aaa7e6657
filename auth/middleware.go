package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ContextKeyService = "auth_service"

// Middleware requires a valid Bearer token signed by issuer, rejecting
// every request without one. Mirrors the teacher's Middleware shape
// (Authorization header split, AbortWithStatusJSON on failure),
// simplified to one service-wide claim instead of per-user claims.
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ContextKeyService, claims.Service)
		c.Next()
	}
}

// ServiceName extracts the authenticated caller's service name, if any.
func ServiceName(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyService); ok {
		return v.(string)
	}
	return ""
}
