package models

import "time"

// CommissionTransaction 类型
const (
	TransactionTypeCommission = "commission" // 按账单周期累计的佣金
	TransactionTypeBonus      = "bonus"
	TransactionTypeAdjustment = "adjustment"
	TransactionTypeChargeback = "chargeback"
)

// CommissionTransaction 状态（只能前进：pending → confirmed → paid；
// pending/confirmed 可在拒付时转 cancelled；paid 和 cancelled 为终态）
const (
	CommissionStatusPending   = "pending"
	CommissionStatusConfirmed = "confirmed"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

// CommissionTransaction 佣金流水：每个账单周期一条
// idx_commission_dedup 唯一索引是幂等锚点：同一 (referral, subscription, 周期起点, 类型)
// 最多一条记录，webhook 重复投递时插入冲突即视为"已处理"，这是去重的权威判定点
type CommissionTransaction struct {
	BaseModel

	AffiliateID uint `json:"affiliate_id" gorm:"not null;index"`
	ReferralID  uint `json:"referral_id" gorm:"not null;index;index:idx_commission_dedup,unique"`

	TransactionType string  `json:"transaction_type" gorm:"size:20;not null;default:'commission';index:idx_commission_dedup,unique"`
	Amount          float64 `json:"amount" gorm:"not null"`          // 佣金金额（币种最小单位四舍五入到两位小数）
	CommissionRate  float64 `json:"commission_rate" gorm:"not null"` // 结算时使用的比例
	BaseAmount      float64 `json:"base_amount" gorm:"not null"`     // 账单金额（佣金基数）
	Currency        string  `json:"currency" gorm:"size:10;not null;default:'USD'"`

	// 上游账单标识
	SubscriptionID  string `json:"subscription_id" gorm:"size:128;not null;index;index:idx_commission_dedup,unique"`
	PaymentIntentID string `json:"payment_intent_id" gorm:"size:128;index"`

	BillingPeriodStart time.Time `json:"billing_period_start" gorm:"not null;index:idx_commission_dedup,unique"`
	BillingPeriodEnd   time.Time `json:"billing_period_end" gorm:"not null"`

	Status   string     `json:"status" gorm:"size:20;not null;default:'pending';index"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	Metadata string     `json:"metadata" gorm:"type:text"`
}

// TableName 指定表名
func (CommissionTransaction) TableName() string {
	return "commission_transactions"
}
