package services

import (
	"time"

	"affiliate-api/internal/database"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"
)

// SignupData carries the signup-time visitor context passed by the account-creation flow
type SignupData struct {
	Email       string `json:"email"`
	IP          string `json:"ip"`
	UserAgent   string `json:"user_agent"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	LandingPage string `json:"landing_page"`
}

// AttributionService binds new accounts to the affiliate whose code was present at signup
type AttributionService struct{}

// NewAttributionService creates a new attribution service
func NewAttributionService() *AttributionService {
	return &AttributionService{}
}

// TrackSignup 将新注册用户归因到推广码对应的推广账户
// 注册永远不能因为归因失败而失败：未知推广码、重复归因、存储错误
// 一律记日志后吞掉。归因记录插入和 total_referrals 自增在同一事务内
func (s *AttributionService) TrackSignup(referralCode, userID, organizationID string, data SignupData) {
	if referralCode == "" || userID == "" {
		return
	}

	affiliate, err := database.GetAffiliateByCode(referralCode)
	if err != nil {
		logging.Infof("Signup with unknown referral code ignored - code: %s, user: %s", referralCode, userID)
		return
	}

	now := time.Now()
	referral := &models.Referral{
		AffiliateID:    affiliate.ID,
		ReferredUserID: userID,
		OrganizationID: organizationID,
		ReferralCode:   referralCode,
		Email:          data.Email,
		IP:             data.IP,
		UserAgent:      data.UserAgent,
		UTMSource:      data.UTMSource,
		UTMMedium:      data.UTMMedium,
		UTMCampaign:    data.UTMCampaign,
		LandingPage:    data.LandingPage,
		ConversionType: models.ConversionTypeSignup,
		ConvertedAt:    &now,
		Status:         models.ReferralStatusConverted,
	}

	if err := database.CreateReferralWithCount(referral); err != nil {
		// referred_user_id 唯一索引：同一用户重复归因会落到这里
		logging.Errorf("Failed to record referral - code: %s, user: %s, error: %v", referralCode, userID, err)
		return
	}

	logging.Infof("Signup attributed - code: %s, user: %s, affiliate: %d", referralCode, userID, affiliate.ID)

	// Best-effort: mark the most recent unconverted click from the same
	// code + ip as converted. Telemetry only, failures are swallowed.
	if data.IP != "" {
		if err := database.MarkLatestClickConverted(referralCode, data.IP); err != nil {
			logging.Infof("No matching click to convert - code: %s, ip: %s", referralCode, data.IP)
		}
	}
}
