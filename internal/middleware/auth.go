// Package middleware holds the gin middleware of the API.
package middleware

import (
	"net/http"
	"strings"

	"beatmarket/pkg/log"
	"beatmarket/pkg/token"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// AuthMiddleware verifies the bearer token issued by the auth provider and
// stores its claims and subject in the context as "claims" and "userID".
// Websocket handshakes may pass the token as the access_token query parameter
// because browsers cannot set headers on them.
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnw("[Auth] token rejected", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("claims", claims)
		c.Set("userID", claims.UserID())
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, bearerPrefix) {
			return "", false
		}
		t := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		return t, t != ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		t := c.Query("access_token")
		return t, t != ""
	}
	return "", false
}
