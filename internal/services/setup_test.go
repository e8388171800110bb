package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"affiliate-api/internal/config"
	"affiliate-api/internal/database"
	"affiliate-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTestDB wires the package-level database handle to a fresh in-memory
// SQLite instance named after the test, so tests stay isolated from each
// other. A single connection keeps the shared-cache database alive for the
// whole test.
func setupTestDB(t *testing.T) {
	t.Helper()

	config.AppConfig = &config.Config{
		Mode:                  "test",
		ReferralBaseURL:       "https://app.example.com",
		LandingURL:            "https://example.com",
		DefaultCommissionRate: 0.15,
		CommissionPeriodDays:  30,
		WebhookSecret:         "test-webhook-secret",
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
}

// createTestAffiliate inserts an affiliate in the given status
func createTestAffiliate(t *testing.T, userID, code, status string) *models.Affiliate {
	t.Helper()

	affiliate := &models.Affiliate{
		UserID:        userID,
		AffiliateCode: code,
		Status:        status,
	}
	require.NoError(t, database.CreateAffiliate(affiliate))
	return affiliate
}

// createTestReferral inserts a converted signup referral for the affiliate
func createTestReferral(t *testing.T, affiliate *models.Affiliate, referredUserID string) *models.Referral {
	t.Helper()

	now := time.Now()
	referral := &models.Referral{
		AffiliateID:    affiliate.ID,
		ReferredUserID: referredUserID,
		ReferralCode:   affiliate.AffiliateCode,
		ConversionType: models.ConversionTypeSignup,
		ConvertedAt:    &now,
		Status:         models.ReferralStatusConverted,
	}
	require.NoError(t, database.CreateReferralWithCount(referral))
	return referral
}

// reloadAffiliate reads the affiliate back from the store
func reloadAffiliate(t *testing.T, id uint) *models.Affiliate {
	t.Helper()

	affiliate, err := database.GetAffiliateByID(id)
	require.NoError(t, err)
	return affiliate
}

// countCommissions counts commission rows for one affiliate
func countCommissions(t *testing.T, affiliateID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, database.DB.Model(&models.CommissionTransaction{}).
		Where("affiliate_id = ?", affiliateID).Count(&count).Error)
	return count
}
