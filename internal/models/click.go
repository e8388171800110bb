package models

// AffiliateClick 推广链接点击记录
// 点击一旦写入不再修改，只有 converted 会在匹配到注册时置为 true；记录永不删除
type AffiliateClick struct {
	BaseModel

	AffiliateID  uint   `json:"affiliate_id" gorm:"not null;index"`          // 所属推广账户
	ReferralCode string `json:"referral_code" gorm:"size:32;not null;index"` // 点击时使用的推广码
	VisitorKey   string `json:"visitor_key" gorm:"size:64;index"`            // 访客标识

	// 访客上下文
	IP          string `json:"ip" gorm:"size:64;index"`
	UserAgent   string `json:"user_agent" gorm:"size:1024"`
	Referer     string `json:"referer" gorm:"size:1024"`
	UTMSource   string `json:"utm_source" gorm:"size:255"`
	UTMMedium   string `json:"utm_medium" gorm:"size:255"`
	UTMCampaign string `json:"utm_campaign" gorm:"size:255"`
	LandingPage string `json:"landing_page" gorm:"size:512"`
	Device      string `json:"device" gorm:"size:20"`  // mobile / tablet / desktop
	Browser     string `json:"browser" gorm:"size:30"`
	OS          string `json:"os" gorm:"size:30"`

	Converted bool `json:"converted" gorm:"not null;default:false;index"` // 是否已转化为注册
}

// TableName 指定表名
func (AffiliateClick) TableName() string {
	return "affiliate_clicks"
}
