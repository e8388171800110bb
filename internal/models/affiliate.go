package models

import (
	"fmt"
	"strings"
	"time"
)

// Affiliate 状态
const (
	AffiliateStatusPending    = "pending"    // 已注册，等待审核
	AffiliateStatusActive     = "active"     // 审核通过，可以累计佣金
	AffiliateStatusSuspended  = "suspended"  // 管理员暂停
	AffiliateStatusTerminated = "terminated" // 管理员终止
)

// Affiliate 推广账户
// 每个用户最多一个推广账户；收益计数是缓存值，真实来源是 commission_transactions 流水，
// 可通过 RecalculateAffiliateEarnings 重算
type Affiliate struct {
	BaseModel

	UserID        string `json:"user_id" gorm:"size:64;not null;uniqueIndex"`         // 所属用户ID
	AffiliateCode string `json:"affiliate_code" gorm:"size:32;not null;uniqueIndex"`  // 推广短码
	ProgramID     string `json:"program_id" gorm:"size:64;index"`                     // 所属佣金计划
	Status        string `json:"status" gorm:"size:20;not null;default:'pending';index"`

	// 覆盖所属计划的佣金比例（可选）
	CommissionRate *float64 `json:"commission_rate,omitempty"`

	// 缓存计数（从流水派生）
	TotalReferrals  int     `json:"total_referrals" gorm:"not null;default:0"`
	TotalEarnings   float64 `json:"total_earnings" gorm:"not null;default:0"`   // 等于 pending + paid
	PendingEarnings float64 `json:"pending_earnings" gorm:"not null;default:0"` // 未结算收益
	PaidEarnings    float64 `json:"paid_earnings" gorm:"not null;default:0"`    // 已结算收益

	// 结算目标
	PaymentEmail   string `json:"payment_email" gorm:"size:255"`
	PaymentMethod  string `json:"payment_method" gorm:"size:50"` // paypal, bank_transfer, etc.
	PaymentDetails string `json:"payment_details" gorm:"type:text"`

	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	LastPayoutAt *time.Time `json:"last_payout_at,omitempty"`
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// ReferralLink builds the shareable tracking link for this affiliate
func (a *Affiliate) ReferralLink(baseURL string) string {
	return fmt.Sprintf("%s/r/%s", strings.TrimRight(baseURL, "/"), a.AffiliateCode)
}

// IsActive reports whether the affiliate may accrue new commissions
func (a *Affiliate) IsActive() bool {
	return a.Status == AffiliateStatusActive
}
