package rbac

import (
	"net/http"

	"voiceconsole/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireGroup enforces the tenancy invariant: group_id must exist in context.
// This does not validate membership; the token issuer vouches for it.
func RequireGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		gid, err := auth.GroupID(c.Request.Context())
		if err != nil || gid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "group_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// super_admin bypasses all checks.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		if IsSuperAdmin(role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
