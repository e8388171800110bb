package database

import (
	"time"

	"affiliate-api/internal/models"
)

// CreateClick 写入点击记录
func CreateClick(click *models.AffiliateClick) error {
	return DB.Create(click).Error
}

// MarkLatestClickConverted 将同一推广码 + IP 最近一条未转化点击标记为已转化
// 归因质量用途，调用方吞掉错误
func MarkLatestClickConverted(referralCode, ip string) error {
	var click models.AffiliateClick
	err := DB.Where("referral_code = ? AND ip = ? AND converted = ?", referralCode, ip, false).
		Order("created_at DESC").
		First(&click).Error
	if err != nil {
		return err
	}
	return DB.Model(&models.AffiliateClick{}).Where("id = ?", click.ID).
		Update("converted", true).Error
}

// CountClicksSince 统计窗口内的点击数
func CountClicksSince(affiliateID uint, since time.Time) (int64, error) {
	var count int64
	err := DB.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Count(&count).Error
	return count, err
}

// GetClickTimesSince 返回窗口内所有点击时间（仪表盘按天分桶用）
func GetClickTimesSince(affiliateID uint, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := DB.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}
