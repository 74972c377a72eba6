package middleware

import (
	"net/http"

	"beatmarket/pkg/log"
	"beatmarket/pkg/token"

	"github.com/gin-gonic/gin"
)

// RequireRole lets a request through only when the verified token carries
// role. It must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("claims")
		claims, ok := v.(*token.CustomClaims)
		if !ok || claims.Role != role {
			log.Warnw("[Auth] role check failed", "path", c.Request.URL.Path, "userID", c.GetString("userID"), "required", role)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "this action requires the " + role + " role"})
			return
		}
		c.Next()
	}
}
