package main

import (
	"database/sql"
	"time"

	"voiceconsole/internal/auth"
	"voiceconsole/internal/httpapi"
	"voiceconsole/internal/rbac"
	"voiceconsole/internal/telephony"
	"voiceconsole/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	db         *sql.DB
	handlers   httpapi.Handlers
	webhooks   telephony.WebhookHandler
	authMW     gin.HandlerFunc
	creditGate gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by Twilio signature validation in production.
	r.POST("/webhooks/twilio/status", d.webhooks.HandleStatusCallback)
	r.POST("/webhooks/twilio/voice", d.webhooks.HandleVoice)

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", d.handlers.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	v1.Use(rbac.RequireGroup())
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			gid, _ := auth.GroupID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "group_id": gid, "role": role})
		})

		// LEDGER routes
		v1.GET("/balance", d.handlers.GetBalance)
		v1.GET("/usage", d.handlers.ListUsage)
		v1.POST("/usage/charge", d.handlers.ChargeUsage)

		// CALLS + DISPATCH routes
		v1.GET("/calls", d.handlers.ListCalls)
		dispatchGroup := v1.Group("/dispatch")
		dispatchGroup.Use(rbac.RequireAnyRole(rbac.RoleMember, rbac.RoleAdmin, rbac.RoleSuperAdmin))
		{
			// Starting a batch requires a positive balance; completed-call
			// billing itself is lenient once a call has happened.
			dispatchGroup.POST("/batches", d.creditGate, d.handlers.StartBatch)
			dispatchGroup.POST("/contacts/parse", d.handlers.ParseContactFile)
		}

		// REPORTING routes
		reports := v1.Group("/reports")
		{
			reports.GET("/calls", d.handlers.CallsReport)
			reports.GET("/usage", d.handlers.UsageReport)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleSuperAdmin))
		{
			admin.POST("/top-up", d.handlers.AdminTopUp)
		}
	}
}
