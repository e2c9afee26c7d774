package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jason-s-yu/showtime/internal/models"
)

const identityKey = "identity"

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (models.Identity, error)
}

// AuthMiddleware requires a valid token in the Authorization header, or in
// the token query parameter for browser websocket clients.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if h := c.GetHeader("Authorization"); h != "" {
			var ok bool
			raw, ok = strings.CutPrefix(h, "Bearer ")
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
				return
			}
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		who, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, who)
		c.Next()
	}
}

func identity(c *gin.Context) models.Identity {
	who, _ := c.MustGet(identityKey).(models.Identity)
	return who
}
