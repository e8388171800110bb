package database

import (
	"time"

	"affiliate-api/internal/models"

	"gorm.io/gorm"
)

// CreateReferralWithCount 在单个事务中写入归因记录并累加推广账户的 total_referrals
// 计数用 SQL 级自增，避免读改写丢更新；referred_user_id 唯一索引保证
// 每个被推荐用户最多一条归因记录，重复注册插入失败时计数也不会增加
func CreateReferralWithCount(referral *models.Referral) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(referral).Error; err != nil {
			return err
		}
		return tx.Model(&models.Affiliate{}).Where("id = ?", referral.AffiliateID).
			Update("total_referrals", gorm.Expr("total_referrals + ?", 1)).Error
	})
}

// GetConvertedReferralByUserID 获取被推荐用户的有效归因记录
func GetConvertedReferralByUserID(userID string) (*models.Referral, error) {
	var referral models.Referral
	err := DB.Where("referred_user_id = ? AND status = ?", userID, models.ReferralStatusConverted).
		First(&referral).Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

// GetReferralBySubscriptionID 通过订阅ID获取归因记录（续费结算的查找键）
func GetReferralBySubscriptionID(subscriptionID string) (*models.Referral, error) {
	var referral models.Referral
	err := DB.Where("subscription_id = ? AND status = ?", subscriptionID, models.ReferralStatusConverted).
		First(&referral).Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

// AttachSubscription 将归因记录原地升级到 subscription 阶段并绑定订阅ID
func AttachSubscription(referralID uint, subscriptionID string) error {
	return DB.Model(&models.Referral{}).Where("id = ?", referralID).
		Updates(map[string]interface{}{
			"subscription_id": subscriptionID,
			"conversion_type": models.ConversionTypeSubscription,
		}).Error
}

// ListRecentReferrals 列出最近的归因记录
func ListRecentReferrals(affiliateID uint, since time.Time, limit int) ([]models.Referral, error) {
	var referrals []models.Referral
	err := DB.Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&referrals).Error
	return referrals, err
}

// CountReferralsSince 统计窗口内的归因记录数
func CountReferralsSince(affiliateID uint, since time.Time, status string) (int64, error) {
	var count int64
	query := DB.Model(&models.Referral{}).
		Where("affiliate_id = ? AND created_at >= ?", affiliateID, since)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&count).Error
	return count, err
}

// GetReferralTimesSince 返回窗口内所有归因记录时间（仪表盘按天分桶用）
func GetReferralTimesSince(affiliateID uint, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := DB.Model(&models.Referral{}).
		Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}
