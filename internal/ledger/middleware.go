package ledger

import (
	"context"
	"net/http"

	"voiceconsole/internal/auth"
	"voiceconsole/internal/rbac"

	"github.com/gin-gonic/gin"
)

// BalanceService is the minimal ledger surface needed by middleware.
type BalanceService interface {
	GetBalance(ctx context.Context, groupID string) (Group, error)
}

// RequireSufficientCredits blocks new session/dispatch creation when the
// group's balance is exhausted. It gates entry only; in-flight usage is
// settled by ChargeUsage / RecordCallUsage, which apply their own policies.
//
// super_admin bypasses the gate (provisioning and support flows).
func RequireSufficientCredits(svc BalanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsSuperAdmin(role) {
			c.Next()
			return
		}

		groupID, err := auth.GroupID(c.Request.Context())
		if err != nil || groupID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "group_id required"})
			return
		}

		g, err := svc.GetBalance(c.Request.Context(), groupID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
			return
		}
		if !g.Credits.IsPositive() {
			// 402 Payment Required is semantically appropriate.
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
			return
		}

		c.Next()
	}
}
