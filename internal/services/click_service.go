package services

import (
	"strings"

	"affiliate-api/internal/database"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"

	"github.com/google/uuid"
)

// ClickContext carries the visitor context captured by the tracking endpoint
type ClickContext struct {
	VisitorKey  string
	IP          string
	UserAgent   string
	Referer     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	LandingPage string
}

// ClickService records anonymous visits against referral codes
type ClickService struct{}

// NewClickService creates a new click service
func NewClickService() *ClickService {
	return &ClickService{}
}

// TrackClick 记录一次推广链接点击
// 未知/失效的推广码和存储错误都静默吞掉：跳转端点永远不能因为埋点失败而报错。
// 重复点击全部记录，去重是仪表盘聚合的事，不在这里做
func (s *ClickService) TrackClick(referralCode string, clickCtx ClickContext) {
	if referralCode == "" {
		return
	}

	affiliate, err := database.GetAffiliateByCode(referralCode)
	if err != nil {
		logging.Infof("Click for unknown referral code ignored - code: %s", referralCode)
		return
	}

	visitorKey := clickCtx.VisitorKey
	if visitorKey == "" {
		visitorKey = uuid.NewString()
	}

	device, browser, os := parseUserAgent(clickCtx.UserAgent)

	click := &models.AffiliateClick{
		AffiliateID:  affiliate.ID,
		ReferralCode: referralCode,
		VisitorKey:   visitorKey,
		IP:           clickCtx.IP,
		UserAgent:    clickCtx.UserAgent,
		Referer:      clickCtx.Referer,
		UTMSource:    clickCtx.UTMSource,
		UTMMedium:    clickCtx.UTMMedium,
		UTMCampaign:  clickCtx.UTMCampaign,
		LandingPage:  clickCtx.LandingPage,
		Device:       device,
		Browser:      browser,
		OS:           os,
	}

	if err := database.CreateClick(click); err != nil {
		logging.Errorf("Failed to record click - code: %s, error: %v", referralCode, err)
		return
	}

	logging.Infof("Click recorded - code: %s, affiliate: %d, device: %s", referralCode, affiliate.ID, device)
}

// parseUserAgent 从 UA 字符串粗分设备/浏览器/系统，仅用于统计展示
func parseUserAgent(userAgent string) (device, browser, os string) {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		device = "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		device = "mobile"
	case ua == "":
		device = "unknown"
	default:
		device = "desktop"
	}

	switch {
	case strings.Contains(ua, "edg/"):
		browser = "edge"
	case strings.Contains(ua, "firefox"):
		browser = "firefox"
	case strings.Contains(ua, "chrome"):
		browser = "chrome"
	case strings.Contains(ua, "safari"):
		browser = "safari"
	case ua == "":
		browser = "unknown"
	default:
		browser = "other"
	}

	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		os = "ios"
	case strings.Contains(ua, "android"):
		os = "android"
	case strings.Contains(ua, "windows"):
		os = "windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		os = "macos"
	case strings.Contains(ua, "linux"):
		os = "linux"
	case ua == "":
		os = "unknown"
	default:
		os = "other"
	}

	return device, browser, os
}
