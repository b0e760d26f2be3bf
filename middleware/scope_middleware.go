package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireScopes creates a middleware that authorizes the request only when
// the caller holds every listed scope on the application resource, e.g.
// RequireScopes("folio", keycloak.ScopeRead) demands "folio.READ".
// This middleware should be used after AuthMiddleware.
func RequireScopes(appName string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "Authentication required")
			return
		}

		var missing []string
		for _, scope := range scopes {
			qualified := appName + "." + scope
			if !user.HasPermission(qualified) {
				missing = append(missing, qualified)
			}
		}

		if len(missing) > 0 {
			c.JSON(http.StatusForbidden, gin.H{
				"status":      "error",
				"message":     "Insufficient permissions",
				"required":    missing,
				"permissions": user.Permissions,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
