package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration (optional - dashboard cache and webhook fast-path dedup)
	RedisURL string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// API authentication
	APIKey      string // app backend key (attribution/dashboard routes)
	AdminAPIKey string // admin routes

	// Billing webhook signature secret. Verification fails closed:
	// with no secret configured every billing event is rejected
	WebhookSecret string

	// Affiliate program configuration
	ReferralBaseURL       string  // base URL for referral links, e.g. https://app.example.com
	LandingURL            string  // where /r/:code redirects to
	DefaultCommissionRate float64 // fallback rate when no program resolves
	CommissionPeriodDays  int     // fallback billing period length
	ServiceName           string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:        getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:         getEnv("BREVO_FROM_NAME", "Affiliate Program"),
		APIKey:                getEnv("API_KEY", ""),
		AdminAPIKey:           getEnv("ADMIN_API_KEY", ""),
		WebhookSecret:         getEnv("BILLING_WEBHOOK_SECRET", ""),
		ReferralBaseURL:       getEnv("REFERRAL_BASE_URL", "http://localhost:8080"),
		LandingURL:            getEnv("LANDING_URL", "http://localhost:3000"),
		DefaultCommissionRate: getEnvFloat("DEFAULT_COMMISSION_RATE", 0.15),
		CommissionPeriodDays:  getEnvInt("COMMISSION_PERIOD_DAYS", 30),
		ServiceName:           getEnv("SERVICE_NAME", "Affiliate Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
