package api

import (
	"affiliate-api/internal/config"
	"affiliate-api/internal/middleware"
	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Shared webhook state, initialized once in SetupRoutes
var (
	signatureService *services.SignatureService
	replayGuard      *services.ReplayGuard
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	signatureService = services.NewSignatureService(config.AppConfig.WebhookSecret)
	replayGuard = services.NewReplayGuard()

	// Referral link redirect (public, called from marketing pages and socials)
	r.GET("/r/:code", HandleReferralClick)

	// API route group
	api := r.Group("/api")
	{
		// Attribution routes (called by the application backend on signup)
		attribution := api.Group("/attribution")
		attribution.Use(middleware.APIKeyMiddleware())
		{
			attribution.POST("/signup", TrackSignup)
		}

		// Billing webhook (payment processor calls this, HMAC-signed)
		billing := api.Group("/billing")
		{
			billing.POST("/webhook", HandleBillingWebhook)
		}

		// Affiliate self-service routes (require API key authentication)
		affiliate := api.Group("/affiliate")
		affiliate.Use(middleware.APIKeyMiddleware())
		{
			affiliate.POST("/enroll", EnrollAffiliate)
			affiliate.GET("/profile", GetAffiliateProfile)
			affiliate.GET("/dashboard", GetAffiliateDashboard)
		}

		// Affiliate management routes (for admin use)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/affiliates", ListAffiliates)
			admin.POST("/affiliates/:id/approve", ApproveAffiliate)
			admin.POST("/affiliates/:id/suspend", SuspendAffiliate)
			admin.POST("/affiliates/:id/terminate", TerminateAffiliate)
			admin.POST("/affiliates/:id/recalculate", RecalculateAffiliateEarnings)
			admin.POST("/commissions/:id/confirm", ConfirmCommission)
			admin.POST("/commissions/:id/mark-paid", MarkCommissionPaid)
			admin.GET("/programs", ListPrograms)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "affiliate-service",
		})
	})
}
