package api

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"affiliate-api/internal/config"
	"affiliate-api/internal/database"
	"affiliate-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTestRouter wires config, an in-memory store and the full route table
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		Mode:                  gin.TestMode,
		APIKey:                "test-api-key",
		AdminAPIKey:           "test-admin-key",
		WebhookSecret:         "test-webhook-secret",
		ReferralBaseURL:       "https://app.example.com",
		LandingURL:            "https://example.com",
		DefaultCommissionRate: 0.15,
		CommissionPeriodDays:  30,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.CommissionProgram{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.Referral{},
		&models.CommissionTransaction{},
	))

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		sqlDB.Close()
	})

	r := gin.New()
	SetupRoutes(r)
	return r
}

// seedAffiliateWithReferral inserts an active affiliate and an attributed signup
func seedAffiliateWithReferral(t *testing.T, code, referredUserID string) *models.Affiliate {
	t.Helper()

	affiliate := &models.Affiliate{
		UserID:        "owner-" + code,
		AffiliateCode: code,
		Status:        models.AffiliateStatusActive,
	}
	require.NoError(t, database.CreateAffiliate(affiliate))

	now := time.Now()
	referral := &models.Referral{
		AffiliateID:    affiliate.ID,
		ReferredUserID: referredUserID,
		ReferralCode:   code,
		ConversionType: models.ConversionTypeSignup,
		ConvertedAt:    &now,
		Status:         models.ReferralStatusConverted,
	}
	require.NoError(t, database.CreateReferralWithCount(referral))
	return affiliate
}
