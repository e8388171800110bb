package middleware

import (
	"crypto/hmac"
	"net/http"

	"affiliate-api/internal/config"
	"affiliate-api/internal/response"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware provides API key authentication for application backends
func APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		// If not passed via header, try to get from query parameters
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing api_key"))
			c.Abort()
			return
		}

		if config.AppConfig.APIKey == "" || !hmac.Equal([]byte(apiKey), []byte(config.AppConfig.APIKey)) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid api_key"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminAuthMiddleware provides authentication for admin management routes
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminKey := c.GetHeader("X-Admin-Key")

		if adminKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing admin key"))
			c.Abort()
			return
		}

		if config.AppConfig.AdminAPIKey == "" || !hmac.Equal([]byte(adminKey), []byte(config.AppConfig.AdminAPIKey)) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid admin key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
