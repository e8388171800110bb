package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"affiliate-api/internal/database"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"
)

const (
	dashboardCacheTTL   = 60 * time.Second
	recentItemsLimit    = 10
	dashboardDateFormat = "2006-01-02"
)

// ErrInvalidTimeframe 调用方传入的 timeframe 不是合法取值
var ErrInvalidTimeframe = errors.New("invalid timeframe, expected day, week, month or year")

// DashboardStats 窗口内的汇总指标
type DashboardStats struct {
	Clicks             int64   `json:"clicks"`
	Referrals          int64   `json:"referrals"`
	ConvertedReferrals int64   `json:"converted_referrals"`
	ConversionRate     float64 `json:"conversion_rate"` // 百分比
	TotalEarnings      float64 `json:"total_earnings"`  // 窗口内佣金总额
	PendingEarnings    float64 `json:"pending_earnings"`
	PaidEarnings       float64 `json:"paid_earnings"`
}

// ChartPoint 时间序列中的一天
type ChartPoint struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Clicks   int64   `json:"clicks"`
	Signups  int64   `json:"signups"`
	Earnings float64 `json:"earnings"`
}

// DashboardData 仪表盘完整数据
type DashboardData struct {
	Stats             DashboardStats                 `json:"stats"`
	RecentReferrals   []models.Referral              `json:"recent_referrals"`
	RecentCommissions []models.CommissionTransaction `json:"recent_commissions"`
	ChartData         []ChartPoint                   `json:"chart_data"`
}

// DashboardService derives affiliate summary statistics from the stored events.
// Read-only - the only correctness requirement here is the arithmetic.
type DashboardService struct{}

// NewDashboardService creates a new dashboard service
func NewDashboardService() *DashboardService {
	return &DashboardService{}
}

// timeframeDays day|week|month|year → 窗口天数
func timeframeDays(timeframe string) (int, error) {
	switch timeframe {
	case "day":
		return 1, nil
	case "week":
		return 7, nil
	case "month", "":
		return 30, nil
	case "year":
		return 365, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
}

// GetAffiliateDashboard 聚合窗口内的点击/归因/佣金数据
// 纯读操作；读错误原样向上抛，页面要明确展示错误而不是静默归零。
// Redis 可用时结果缓存 60 秒
func (s *DashboardService) GetAffiliateDashboard(affiliateID uint, timeframe string) (*DashboardData, error) {
	days, err := timeframeDays(timeframe)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("affiliate_dashboard:%d:%d", affiliateID, days)

	// Cache fast path
	if cached, err := database.GetCache(ctx, cacheKey); err == nil && cached != "" {
		var data DashboardData
		if err := json.Unmarshal([]byte(cached), &data); err == nil {
			return &data, nil
		}
	}

	affiliate, err := database.GetAffiliateByID(affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate %d: %w", affiliateID, err)
	}

	since := time.Now().AddDate(0, 0, -days)

	clicks, err := database.CountClicksSince(affiliateID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}

	referrals, err := database.CountReferralsSince(affiliateID, since, "")
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	converted, err := database.CountReferralsSince(affiliateID, since, models.ReferralStatusConverted)
	if err != nil {
		return nil, fmt.Errorf("failed to count converted referrals: %w", err)
	}

	totalEarnings, err := database.SumCommissionAmountSince(affiliateID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to sum commissions: %w", err)
	}

	recentReferrals, err := database.ListRecentReferrals(affiliateID, since, recentItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent referrals: %w", err)
	}

	recentCommissions, err := database.ListRecentCommissions(affiliateID, since, recentItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent commissions: %w", err)
	}

	chartData, err := s.buildChartData(affiliateID, since, days)
	if err != nil {
		return nil, err
	}

	// 无点击时转化率为 0，避免除零
	conversionRate := 0.0
	if clicks > 0 {
		conversionRate = float64(converted) / float64(clicks) * 100
	}

	data := &DashboardData{
		Stats: DashboardStats{
			Clicks:             clicks,
			Referrals:          referrals,
			ConvertedReferrals: converted,
			ConversionRate:     conversionRate,
			TotalEarnings:      totalEarnings,
			PendingEarnings:    affiliate.PendingEarnings,
			PaidEarnings:       affiliate.PaidEarnings,
		},
		RecentReferrals:   recentReferrals,
		RecentCommissions: recentCommissions,
		ChartData:         chartData,
	}

	// Cache best-effort
	if encoded, err := json.Marshal(data); err == nil {
		if err := database.SetCache(ctx, cacheKey, string(encoded), dashboardCacheTTL); err != nil {
			logging.Errorf("Failed to cache dashboard - affiliate: %d, error: %v", affiliateID, err)
		}
	}

	return data, nil
}

// buildChartData 把窗口内的事件按自然日分桶
func (s *DashboardService) buildChartData(affiliateID uint, since time.Time, days int) ([]ChartPoint, error) {
	clickTimes, err := database.GetClickTimesSince(affiliateID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load click series: %w", err)
	}

	referralTimes, err := database.GetReferralTimesSince(affiliateID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral series: %w", err)
	}

	commissionEntries, err := database.GetCommissionEntriesSince(affiliateID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load commission series: %w", err)
	}

	// 预生成窗口起点到今天的每一个自然日，没有数据的天也要出现在序列里。
	// 窗口起点通常落在某天的中间，它所在的自然日也必须有桶，
	// 否则统计口径（滚动窗口）里的事件会从图表上丢掉
	now := time.Now()
	startDay := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, since.Location())
	endDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var dates []string
	buckets := make(map[string]*ChartPoint, days+1)
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		date := d.Format(dashboardDateFormat)
		dates = append(dates, date)
		buckets[date] = &ChartPoint{Date: date}
	}

	for _, t := range clickTimes {
		if point, ok := buckets[t.Format(dashboardDateFormat)]; ok {
			point.Clicks++
		}
	}
	for _, t := range referralTimes {
		if point, ok := buckets[t.Format(dashboardDateFormat)]; ok {
			point.Signups++
		}
	}
	for _, entry := range commissionEntries {
		if point, ok := buckets[entry.CreatedAt.Format(dashboardDateFormat)]; ok {
			point.Earnings += entry.Amount
		}
	}

	series := make([]ChartPoint, 0, len(dates))
	for _, date := range dates {
		series = append(series, *buckets[date])
	}
	return series, nil
}
