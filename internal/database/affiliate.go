package database

import (
	"time"

	"affiliate-api/internal/models"

	"gorm.io/gorm"
)

// CreateAffiliate 创建推广账户
func CreateAffiliate(affiliate *models.Affiliate) error {
	return DB.Create(affiliate).Error
}

// GetAffiliateByID 通过ID获取推广账户
func GetAffiliateByID(id uint) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := DB.First(&affiliate, id).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetAffiliateByCode 通过推广码获取推广账户
func GetAffiliateByCode(code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := DB.Where("affiliate_code = ?", code).First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetAffiliateByUserID 通过用户ID获取推广账户
func GetAffiliateByUserID(userID string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := DB.Where("user_id = ?", userID).First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// AffiliateCodeExists 检查推广码是否已被占用
func AffiliateCodeExists(code string) (bool, error) {
	var count int64
	err := DB.Model(&models.Affiliate{}).Where("affiliate_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateAffiliateStatus 更新推广账户状态
func UpdateAffiliateStatus(id uint, status string, approvedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if approvedAt != nil {
		updates["approved_at"] = approvedAt
	}
	return DB.Model(&models.Affiliate{}).Where("id = ?", id).Updates(updates).Error
}

// ListAffiliates 按状态列出推广账户（status 为空时列出全部）
func ListAffiliates(status string, limit, offset int) ([]models.Affiliate, error) {
	var affiliates []models.Affiliate
	query := DB.Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&affiliates).Error
	return affiliates, err
}

// RecalculateAffiliateEarnings 从佣金流水重算收益缓存
// 流水是唯一真实来源：pending = pending/confirmed 之和，paid = paid 之和，
// cancelled 不计入；total 恒等于 pending + paid
func RecalculateAffiliateEarnings(affiliateID uint) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&affiliate, affiliateID).Error; err != nil {
			return err
		}

		var pending, paid float64
		err := tx.Model(&models.CommissionTransaction{}).
			Where("affiliate_id = ? AND transaction_type = ? AND status IN ?",
				affiliateID, models.TransactionTypeCommission,
				[]string{models.CommissionStatusPending, models.CommissionStatusConfirmed}).
			Select("COALESCE(SUM(amount), 0)").Scan(&pending).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.CommissionTransaction{}).
			Where("affiliate_id = ? AND transaction_type = ? AND status = ?",
				affiliateID, models.TransactionTypeCommission, models.CommissionStatusPaid).
			Select("COALESCE(SUM(amount), 0)").Scan(&paid).Error
		if err != nil {
			return err
		}

		var referrals int64
		err = tx.Model(&models.Referral{}).
			Where("affiliate_id = ?", affiliateID).Count(&referrals).Error
		if err != nil {
			return err
		}

		affiliate.PendingEarnings = pending
		affiliate.PaidEarnings = paid
		affiliate.TotalEarnings = pending + paid
		affiliate.TotalReferrals = int(referrals)

		return tx.Model(&models.Affiliate{}).Where("id = ?", affiliateID).
			Updates(map[string]interface{}{
				"pending_earnings": pending,
				"paid_earnings":    paid,
				"total_earnings":   pending + paid,
				"total_referrals":  referrals,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}
