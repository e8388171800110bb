package services

import (
	"fmt"
	"time"

	"affiliate-api/internal/database"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"

	"gorm.io/gorm"
)

// CommissionService is the commission accrual engine. It is driven by
// payment-processor billing events: the first paid subscription of a referred
// user, then one recurring event per renewal period. Webhook delivery is
// at-least-once, so every write path here must be idempotent - the authoritative
// de-duplication point is the unique index on
// (referral_id, subscription_id, billing_period_start, transaction_type).
type CommissionService struct {
	affiliateService *AffiliateService
	notifier         *NotificationService
}

// NewCommissionService creates a new commission service
func NewCommissionService() *CommissionService {
	return &CommissionService{
		affiliateService: NewAffiliateService(),
		notifier:         NewNotificationService(),
	}
}

// TrackSubscription 被推荐用户首次付费订阅时调用
// 未被归因的用户是正常情况，静默返回；存储错误向上抛，由 webhook
// 投递方重试（幂等锚点保证重试无害）
func (s *CommissionService) TrackSubscription(userID, subscriptionID string, amount float64, currency string) error {
	referral, err := database.GetConvertedReferralByUserID(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// User was not referred, nothing to do
			return nil
		}
		return fmt.Errorf("failed to look up referral for user %s: %w", userID, err)
	}

	affiliate, err := database.GetAffiliateByID(referral.AffiliateID)
	if err != nil {
		return fmt.Errorf("failed to load affiliate %d: %w", referral.AffiliateID, err)
	}

	// 未激活账户不累计佣金（pending 未审核、suspended/terminated 管理员处理中）
	if !affiliate.IsActive() {
		logging.Warnf("Commission skipped, affiliate not active - affiliate: %d, status: %s, subscription: %s",
			affiliate.ID, affiliate.Status, subscriptionID)
		return nil
	}

	// 原地升级归因记录到 subscription 阶段
	if err := database.AttachSubscription(referral.ID, subscriptionID); err != nil {
		return fmt.Errorf("failed to attach subscription to referral %d: %w", referral.ID, err)
	}

	rate := s.affiliateService.ResolveCommissionRate(affiliate)
	periodDays := s.affiliateService.ResolveBillingPeriodDays(affiliate)
	now := time.Now()

	txn := &models.CommissionTransaction{
		AffiliateID:        affiliate.ID,
		ReferralID:         referral.ID,
		TransactionType:    models.TransactionTypeCommission,
		Amount:             RoundCurrency(amount * rate),
		CommissionRate:     rate,
		BaseAmount:         amount,
		Currency:           currency,
		SubscriptionID:     subscriptionID,
		BillingPeriodStart: now,
		BillingPeriodEnd:   now.AddDate(0, 0, periodDays),
		Status:             models.CommissionStatusPending, // 首次佣金待确认
	}

	// 首次事件的周期起点取处理时刻，重复投递时起点不同，
	// 去重必须按订阅判定而不是按周期判定
	inserted, err := database.InsertInitialCommissionWithAccrual(txn)
	if err != nil {
		return fmt.Errorf("failed to record initial commission: %w", err)
	}
	if !inserted {
		logging.Infof("Initial commission already recorded - subscription: %s", subscriptionID)
		return nil
	}

	logging.Infof("Initial commission recorded - affiliate: %d, referral: %d, subscription: %s, amount: %.2f %s (rate %.2f)",
		affiliate.ID, referral.ID, subscriptionID, txn.Amount, currency, rate)

	go s.notifier.SendCommissionEmail(affiliate, txn)

	return nil
}

// ProcessRecurringCommission 每个续费账单周期调用一次
// webhook 至少一次投递，重复/并发投递靠唯一索引去重：存在性检查只是快速路径，
// 真正的判定是插入冲突，命中即视为已处理（成功空操作）
func (s *CommissionService) ProcessRecurringCommission(subscriptionID string, amount float64, paymentIntentID string, periodStart, periodEnd time.Time) error {
	referral, err := database.GetReferralBySubscriptionID(subscriptionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Subscription was never attributed, nothing to do
			return nil
		}
		return fmt.Errorf("failed to look up referral for subscription %s: %w", subscriptionID, err)
	}

	// Fast path: skip the insert when the period is already recorded
	exists, err := database.CommissionExists(referral.ID, subscriptionID, periodStart)
	if err != nil {
		return fmt.Errorf("failed to check existing commission: %w", err)
	}
	if exists {
		logging.Infof("Recurring commission already processed - subscription: %s, period_start: %s",
			subscriptionID, periodStart.Format(time.RFC3339))
		return nil
	}

	affiliate, err := database.GetAffiliateByID(referral.AffiliateID)
	if err != nil {
		return fmt.Errorf("failed to load affiliate %d: %w", referral.AffiliateID, err)
	}

	if !affiliate.IsActive() {
		logging.Warnf("Recurring commission skipped, affiliate not active - affiliate: %d, status: %s, subscription: %s",
			affiliate.ID, affiliate.Status, subscriptionID)
		return nil
	}

	rate := s.affiliateService.ResolveCommissionRate(affiliate)

	txn := &models.CommissionTransaction{
		AffiliateID:        affiliate.ID,
		ReferralID:         referral.ID,
		TransactionType:    models.TransactionTypeCommission,
		Amount:             RoundCurrency(amount * rate),
		CommissionRate:     rate,
		BaseAmount:         amount,
		Currency:           "USD",
		SubscriptionID:     subscriptionID,
		PaymentIntentID:    paymentIntentID,
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		Status:             models.CommissionStatusConfirmed, // 续费已由支付方确认
	}

	// 续费事件不带币种，沿用该订阅首笔佣金的币种；没有首笔流水时保持 USD，
	// 真正的存储错误向上抛，交给投递方重试
	currency, err := database.GetSubscriptionCurrency(subscriptionID)
	if err == nil {
		txn.Currency = currency
	} else if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to look up currency for subscription %s: %w", subscriptionID, err)
	}

	inserted, err := database.InsertCommissionWithAccrual(txn)
	if err != nil {
		return fmt.Errorf("failed to record recurring commission: %w", err)
	}
	if !inserted {
		// 并发投递时另一个请求先插入成功，同样视为成功
		logging.Infof("Recurring commission deduplicated by unique index - subscription: %s, period_start: %s",
			subscriptionID, periodStart.Format(time.RFC3339))
		return nil
	}

	logging.Infof("Recurring commission recorded - affiliate: %d, subscription: %s, period: %s, amount: %.2f",
		affiliate.ID, subscriptionID, periodStart.Format("2006-01-02"), txn.Amount)

	return nil
}

// ConfirmTransaction 状态前进 pending → confirmed
func (s *CommissionService) ConfirmTransaction(transactionID uint) error {
	return database.ConfirmCommission(transactionID)
}

// MarkTransactionPaid 状态前进 confirmed → paid，金额从 pending 挪到 paid
func (s *CommissionService) MarkTransactionPaid(transactionID uint) error {
	return database.MarkCommissionPaid(transactionID)
}

// ProcessChargeback 上游拒付：取消对应佣金流水并冲回收益
// 找不到对应流水不是错误（拒付的订单可能本来就没有归因）
func (s *CommissionService) ProcessChargeback(paymentIntentID, reason string) error {
	txn, err := database.GetCommissionByPaymentIntentID(paymentIntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Infof("Chargeback with no matching commission ignored - payment_intent: %s", paymentIntentID)
			return nil
		}
		return fmt.Errorf("failed to look up commission for payment intent %s: %w", paymentIntentID, err)
	}

	if txn.Status == models.CommissionStatusCancelled {
		// Chargeback webhooks redeliver too
		return nil
	}

	if err := database.CancelCommissionWithReversal(txn.ID, reason); err != nil {
		return fmt.Errorf("failed to cancel commission %d: %w", txn.ID, err)
	}

	logging.Infof("Commission cancelled on chargeback - transaction: %d, payment_intent: %s, amount: %.2f",
		txn.ID, paymentIntentID, txn.Amount)
	return nil
}

// RecalculateEarnings 从流水重算收益缓存（计数漂移时的纠偏入口）
func (s *CommissionService) RecalculateEarnings(affiliateID uint) (*models.Affiliate, error) {
	return database.RecalculateAffiliateEarnings(affiliateID)
}
