package api

import (
	"net/http"

	accountDelivery "mailsync-backend/internal/account/delivery"
	authDelivery "mailsync-backend/internal/auth/delivery"
	authUsecase "mailsync-backend/internal/auth/usecase"
	subDelivery "mailsync-backend/internal/subscription/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	accountHandler *accountDelivery.AccountHandler,
	webhookHandler *subDelivery.WebhookHandler,
	adminHandler *subDelivery.AdminHandler,
) {
	authHandler := authDelivery.NewAuthHandler(authUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// Webhook receive paths. Providers authenticate through the payload
		// (clientState / Pub/Sub envelope), not through bearer tokens.
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/gmail", webhookHandler.HandleGmail)
			webhooks.POST("/outlook", webhookHandler.HandleOutlook)
			// Graph sends the validation handshake as GET on some flows
			webhooks.GET("/outlook", webhookHandler.HandleOutlook)
		}

		// Account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(authDelivery.AuthMiddleware(authUc))
		{
			accounts.GET("", accountHandler.List)
			accounts.POST("", accountHandler.Register)
			accounts.POST("/:id/deactivate", accountHandler.Deactivate)
			accounts.POST("/:id/reactivate", accountHandler.Reactivate)
			accounts.POST("/:id/device-tokens", accountHandler.RegisterDeviceToken)
		}

		// Admin reconciliation routes (protected)
		admin := api.Group("/admin")
		admin.Use(authDelivery.AuthMiddleware(authUc))
		{
			admin.POST("/reconcile/:id", adminHandler.ReconcileAccount)
			admin.GET("/subscriptions/missing", adminHandler.ListMissing)
			admin.POST("/subscriptions/renew-all", adminHandler.ForceRenewAll)
			admin.GET("/subscriptions/status", adminHandler.SyncStatus)
			admin.GET("/scheduler", adminHandler.SchedulerStatus)
		}
	}
}
