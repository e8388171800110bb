package models

import "time"

// Referral 转化阶段（记录到达的最远阶段）
const (
	ConversionTypeClick        = "click"
	ConversionTypeSignup       = "signup"
	ConversionTypeSubscription = "subscription"
)

// Referral 状态
const (
	ReferralStatusPending   = "pending"
	ReferralStatusConverted = "converted"
	ReferralStatusCancelled = "cancelled"
)

// Referral 归因记录：连接推广账户和被推荐用户
// 注册时以 converted 状态创建；被推荐用户首次付费订阅时原地升级为 subscription 阶段。
// referred_user_id 唯一：每个被推荐用户最多一条归因记录，也是佣金结算的查找键
type Referral struct {
	BaseModel

	AffiliateID    uint   `json:"affiliate_id" gorm:"not null;index"`
	ReferredUserID string `json:"referred_user_id" gorm:"size:64;not null;uniqueIndex"` // 被推荐用户ID
	OrganizationID string `json:"organization_id" gorm:"size:64"`
	ReferralCode   string `json:"referral_code" gorm:"size:32;not null;index"`
	Email          string `json:"email" gorm:"size:255"`

	// 注册时的访客上下文
	IP          string `json:"ip" gorm:"size:64"`
	UserAgent   string `json:"user_agent" gorm:"size:1024"`
	UTMSource   string `json:"utm_source" gorm:"size:255"`
	UTMMedium   string `json:"utm_medium" gorm:"size:255"`
	UTMCampaign string `json:"utm_campaign" gorm:"size:255"`
	LandingPage string `json:"landing_page" gorm:"size:512"`

	ConversionType string     `json:"conversion_type" gorm:"size:20;not null;default:'signup';index"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`
	SubscriptionID string     `json:"subscription_id" gorm:"size:128;index"` // 首次付费订阅后写入
	Status         string     `json:"status" gorm:"size:20;not null;default:'converted';index"`
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}
