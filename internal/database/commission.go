package database

import (
	"fmt"
	"time"

	"affiliate-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertCommissionWithAccrual 在单个事务中写入佣金流水并累加推广账户收益
// 去重的权威判定点是 idx_commission_dedup 唯一索引：插入命中冲突时返回 (false, nil)，
// 调用方视为"已处理"；只有真正插入成功才累加 pending/total，增量用 SQL 级自增，
// 同一账户并发结算时不会丢更新
func InsertCommissionWithAccrual(txn *models.CommissionTransaction) (bool, error) {
	inserted := false
	err := DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "referral_id"},
				{Name: "subscription_id"},
				{Name: "billing_period_start"},
				{Name: "transaction_type"},
			},
			DoNothing: true,
		}).Create(txn)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 重复投递，已有同周期流水
			return nil
		}

		inserted = true
		return tx.Model(&models.Affiliate{}).Where("id = ?", txn.AffiliateID).
			Updates(map[string]interface{}{
				"pending_earnings": gorm.Expr("pending_earnings + ?", txn.Amount),
				"total_earnings":   gorm.Expr("total_earnings + ?", txn.Amount),
			}).Error
	})
	return inserted, err
}

// InsertInitialCommissionWithAccrual 写入某订阅的首笔佣金并累加收益
// 首次付费事件不携带周期起点，周期从处理时刻起算，重复投递时周期起点不同，
// 唯一索引对它不起判定作用。改为在同一事务内按 (referral, subscription) 做
// 存在性判定：已有任何 commission 流水即视为已处理，返回 (false, nil)。
// 唯一索引仍然兜底同周期的并发插入
func InsertInitialCommissionWithAccrual(txn *models.CommissionTransaction) (bool, error) {
	inserted := false
	err := DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CommissionTransaction{}).
			Where("referral_id = ? AND subscription_id = ? AND transaction_type = ?",
				txn.ReferralID, txn.SubscriptionID, models.TransactionTypeCommission).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			// 重复投递，该订阅已有首笔佣金
			return nil
		}

		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "referral_id"},
				{Name: "subscription_id"},
				{Name: "billing_period_start"},
				{Name: "transaction_type"},
			},
			DoNothing: true,
		}).Create(txn)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		inserted = true
		return tx.Model(&models.Affiliate{}).Where("id = ?", txn.AffiliateID).
			Updates(map[string]interface{}{
				"pending_earnings": gorm.Expr("pending_earnings + ?", txn.Amount),
				"total_earnings":   gorm.Expr("total_earnings + ?", txn.Amount),
			}).Error
	})
	return inserted, err
}

// CommissionExists 快速路径检查：同一 (referral, subscription, 周期起点) 是否已有佣金流水
// 仅用于省掉一次无谓的插入，不作为去重依据
func CommissionExists(referralID uint, subscriptionID string, periodStart time.Time) (bool, error) {
	var count int64
	err := DB.Model(&models.CommissionTransaction{}).
		Where("referral_id = ? AND subscription_id = ? AND billing_period_start = ? AND transaction_type = ?",
			referralID, subscriptionID, periodStart, models.TransactionTypeCommission).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetSubscriptionCurrency 返回某订阅最早一笔佣金流水的币种
func GetSubscriptionCurrency(subscriptionID string) (string, error) {
	var txn models.CommissionTransaction
	err := DB.Select("currency").
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		First(&txn).Error
	if err != nil {
		return "", err
	}
	return txn.Currency, nil
}

// GetCommissionByID 通过ID获取佣金流水
func GetCommissionByID(id uint) (*models.CommissionTransaction, error) {
	var txn models.CommissionTransaction
	err := DB.First(&txn, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetCommissionByPaymentIntentID 通过支付单号获取佣金流水（拒付处理的查找键）
func GetCommissionByPaymentIntentID(paymentIntentID string) (*models.CommissionTransaction, error) {
	var txn models.CommissionTransaction
	err := DB.Where("payment_intent_id = ? AND transaction_type = ?",
		paymentIntentID, models.TransactionTypeCommission).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ConfirmCommission 状态前进 pending → confirmed
// WHERE 带上当前状态，非法状态跳转时影响行数为 0
func ConfirmCommission(id uint) error {
	result := DB.Model(&models.CommissionTransaction{}).
		Where("id = ? AND status = ?", id, models.CommissionStatusPending).
		Update("status", models.CommissionStatusConfirmed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("commission %d is not pending", id)
	}
	return nil
}

// MarkCommissionPaid 状态前进 confirmed → paid，并把金额从 pending 挪到 paid
// 两步在同一事务内，保证 total == pending + paid 不变式
func MarkCommissionPaid(id uint) error {
	now := time.Now()
	return DB.Transaction(func(tx *gorm.DB) error {
		var txn models.CommissionTransaction
		if err := tx.First(&txn, id).Error; err != nil {
			return err
		}

		result := tx.Model(&models.CommissionTransaction{}).
			Where("id = ? AND status = ?", id, models.CommissionStatusConfirmed).
			Updates(map[string]interface{}{
				"status":  models.CommissionStatusPaid,
				"paid_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("commission %d is not confirmed", id)
		}

		return tx.Model(&models.Affiliate{}).Where("id = ?", txn.AffiliateID).
			Updates(map[string]interface{}{
				"pending_earnings": gorm.Expr("pending_earnings - ?", txn.Amount),
				"paid_earnings":    gorm.Expr("paid_earnings + ?", txn.Amount),
				"last_payout_at":   now,
			}).Error
	})
}

// CancelCommissionWithReversal 拒付：pending/confirmed → cancelled，同时冲回收益
// paid 流水不允许在这里取消（结算后的争议走人工调整）
func CancelCommissionWithReversal(id uint, reason string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		var txn models.CommissionTransaction
		if err := tx.First(&txn, id).Error; err != nil {
			return err
		}

		result := tx.Model(&models.CommissionTransaction{}).
			Where("id = ? AND status IN ?", id,
				[]string{models.CommissionStatusPending, models.CommissionStatusConfirmed}).
			Updates(map[string]interface{}{
				"status":   models.CommissionStatusCancelled,
				"metadata": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("commission %d cannot be cancelled", id)
		}

		return tx.Model(&models.Affiliate{}).Where("id = ?", txn.AffiliateID).
			Updates(map[string]interface{}{
				"pending_earnings": gorm.Expr("pending_earnings - ?", txn.Amount),
				"total_earnings":   gorm.Expr("total_earnings - ?", txn.Amount),
			}).Error
	})
}

// ListRecentCommissions 列出最近的佣金流水
func ListRecentCommissions(affiliateID uint, since time.Time, limit int) ([]models.CommissionTransaction, error) {
	var txns []models.CommissionTransaction
	err := DB.Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// SumCommissionAmountSince 统计窗口内的佣金总额（cancelled 不计入）
func SumCommissionAmountSince(affiliateID uint, since time.Time) (float64, error) {
	var total float64
	err := DB.Model(&models.CommissionTransaction{}).
		Where("affiliate_id = ? AND transaction_type = ? AND status <> ? AND created_at >= ?",
			affiliateID, models.TransactionTypeCommission, models.CommissionStatusCancelled, since).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

// CommissionEntry 仪表盘按天分桶用的最小投影
type CommissionEntry struct {
	CreatedAt time.Time
	Amount    float64
}

// GetCommissionEntriesSince 返回窗口内的佣金时间与金额（cancelled 不计入）
func GetCommissionEntriesSince(affiliateID uint, since time.Time) ([]CommissionEntry, error) {
	var entries []CommissionEntry
	err := DB.Model(&models.CommissionTransaction{}).
		Where("affiliate_id = ? AND transaction_type = ? AND status <> ? AND created_at >= ?",
			affiliateID, models.TransactionTypeCommission, models.CommissionStatusCancelled, since).
		Order("created_at ASC").
		Select("created_at, amount").
		Scan(&entries).Error
	return entries, err
}
