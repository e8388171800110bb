package services

import (
	"sync"
	"testing"
	"time"

	"affiliate-api/internal/database"
	"affiliate-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackSubscription_RecordsInitialCommission(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	referral := createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	// One pending commission at the default 15% rate
	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("subscription_id = ?", "sub-1").First(&txn).Error)
	assert.Equal(t, affiliate.ID, txn.AffiliateID)
	assert.Equal(t, referral.ID, txn.ReferralID)
	assert.Equal(t, models.TransactionTypeCommission, txn.TransactionType)
	assert.Equal(t, models.CommissionStatusPending, txn.Status)
	assert.Equal(t, 15.0, txn.Amount)
	assert.Equal(t, 100.0, txn.BaseAmount)
	assert.Equal(t, 0.15, txn.CommissionRate)
	assert.Equal(t, "USD", txn.Currency)

	// Earnings counters accrued in the same transaction
	got := reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.PendingEarnings)
	assert.Equal(t, 15.0, got.TotalEarnings)
	assert.Equal(t, 0.0, got.PaidEarnings)

	// Referral upgraded to the subscription stage
	updated, err := database.GetReferralBySubscriptionID("sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversionTypeSubscription, updated.ConversionType)
}

func TestTrackSubscription_UnreferredUserIsNoop(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("stranger", "sub-9", 100.0, "USD"))

	assert.EqualValues(t, 0, countCommissions(t, affiliate.ID))
}

func TestTrackSubscription_InactiveAffiliateSkipsAccrual(t *testing.T) {
	setupTestDB(t)

	for _, status := range []string{
		models.AffiliateStatusPending,
		models.AffiliateStatusSuspended,
		models.AffiliateStatusTerminated,
	} {
		affiliate := createTestAffiliate(t, "owner-"+status, "CODE"+status, status)
		createTestReferral(t, affiliate, "user-"+status)

		svc := NewCommissionService()
		require.NoError(t, svc.TrackSubscription("user-"+status, "sub-"+status, 100.0, "USD"))

		assert.EqualValues(t, 0, countCommissions(t, affiliate.ID), "status %s must not accrue", status)
		got := reloadAffiliate(t, affiliate.ID)
		assert.Equal(t, 0.0, got.TotalEarnings)
	}
}

func TestTrackSubscription_RedeliveryIsIdempotent(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	assert.EqualValues(t, 1, countCommissions(t, affiliate.ID))
	got := reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.TotalEarnings)
}

func TestTrackSubscription_ConcurrentRedeliveryInsertsOnce(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.TrackSubscription("user-1", "sub-1", 100.0, "USD")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// The deliveries race with distinct period starts, the subscription-keyed
	// check inside the insert transaction must still collapse them to one row
	assert.EqualValues(t, 1, countCommissions(t, affiliate.ID))
	got := reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.PendingEarnings)
	assert.Equal(t, 15.0, got.TotalEarnings)
}

func TestTrackSubscription_UsesAffiliateRateOverride(t *testing.T) {
	setupTestDB(t)
	rate := 0.25
	affiliate := &models.Affiliate{
		UserID:         "owner-1",
		AffiliateCode:  "REF123",
		Status:         models.AffiliateStatusActive,
		CommissionRate: &rate,
	}
	require.NoError(t, database.CreateAffiliate(affiliate))
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("subscription_id = ?", "sub-1").First(&txn).Error)
	assert.Equal(t, 25.0, txn.Amount)
	assert.Equal(t, 0.25, txn.CommissionRate)
}

// Full accrual walk: $100/month at 15%, first charge then one renewal,
// then the renewal webhook delivered again. Balance ends at 30, not 45.
func TestCommissionAccrual_RenewalAndRedelivery(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))
	got := reloadAffiliate(t, affiliate.ID)
	require.Equal(t, 15.0, got.PendingEarnings)

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_renewal_1", periodStart, periodEnd))

	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 30.0, got.PendingEarnings)
	assert.Equal(t, 30.0, got.TotalEarnings)

	// Same billing period redelivered: successful no-op
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_renewal_1", periodStart, periodEnd))

	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 30.0, got.PendingEarnings)
	assert.Equal(t, 30.0, got.TotalEarnings)
	assert.EqualValues(t, 2, countCommissions(t, affiliate.ID))

	// Next period accrues again
	nextStart := periodEnd
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_renewal_2", nextStart, nextStart.AddDate(0, 1, 0)))

	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 45.0, got.PendingEarnings)
	assert.EqualValues(t, 3, countCommissions(t, affiliate.ID))
}

func TestProcessRecurringCommission_UnknownSubscriptionIsNoop(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)

	svc := NewCommissionService()
	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ProcessRecurringCommission("no-such-sub", 100.0, "pi_1", periodStart, periodStart.AddDate(0, 1, 0)))

	assert.EqualValues(t, 0, countCommissions(t, affiliate.ID))
}

func TestProcessRecurringCommission_InheritsSubscriptionCurrency(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "EUR"))

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_1", periodStart, periodStart.AddDate(0, 1, 0)))

	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("payment_intent_id = ?", "pi_1").First(&txn).Error)
	assert.Equal(t, "EUR", txn.Currency)
	assert.Equal(t, models.CommissionStatusConfirmed, txn.Status)
}

func TestProcessRecurringCommission_DefaultsToUSDWithoutInitialCommission(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	referral := createTestReferral(t, affiliate, "user-1")

	// Subscription attached but no initial commission row to inherit from
	require.NoError(t, database.AttachSubscription(referral.ID, "sub-1"))

	svc := NewCommissionService()
	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_1", periodStart, periodStart.AddDate(0, 1, 0)))

	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("payment_intent_id = ?", "pi_1").First(&txn).Error)
	assert.Equal(t, "USD", txn.Currency)
}

func TestProcessRecurringCommission_ConcurrentDuplicatesInsertOnce(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.ProcessRecurringCommission("sub-1", 100.0, "pi_1", periodStart, periodEnd)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one renewal row on top of the initial commission
	assert.EqualValues(t, 2, countCommissions(t, affiliate.ID))
	got := reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 30.0, got.PendingEarnings)
	assert.Equal(t, 30.0, got.TotalEarnings)
}

func TestMarkTransactionPaid_MovesPendingToPaid(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("subscription_id = ?", "sub-1").First(&txn).Error)

	// pending → paid is not a legal jump
	require.Error(t, svc.MarkTransactionPaid(txn.ID))

	require.NoError(t, svc.ConfirmTransaction(txn.ID))
	require.NoError(t, svc.MarkTransactionPaid(txn.ID))

	got := reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 0.0, got.PendingEarnings)
	assert.Equal(t, 15.0, got.PaidEarnings)
	assert.Equal(t, 15.0, got.TotalEarnings)
	assert.Equal(t, got.TotalEarnings, got.PendingEarnings+got.PaidEarnings)
	assert.NotNil(t, got.LastPayoutAt)

	paid, err := database.GetCommissionByID(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// Redelivered payout confirmation must not move money twice
	require.Error(t, svc.MarkTransactionPaid(txn.ID))
	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.PaidEarnings)
}

func TestConfirmTransaction_RejectsNonPending(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	var txn models.CommissionTransaction
	require.NoError(t, database.DB.Where("subscription_id = ?", "sub-1").First(&txn).Error)

	require.NoError(t, svc.ConfirmTransaction(txn.ID))
	require.Error(t, svc.ConfirmTransaction(txn.ID))
}

func TestProcessChargeback_CancelsAndReversesEarnings(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_1", periodStart, periodStart.AddDate(0, 1, 0)))

	got := reloadAffiliate(t, affiliate.ID)
	require.Equal(t, 30.0, got.TotalEarnings)

	require.NoError(t, svc.ProcessChargeback("pi_1", "fraudulent"))

	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.PendingEarnings)
	assert.Equal(t, 15.0, got.TotalEarnings)

	txn, err := database.GetCommissionByPaymentIntentID("pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusCancelled, txn.Status)
	assert.Equal(t, "fraudulent", txn.Metadata)

	// Chargeback webhooks redeliver too
	require.NoError(t, svc.ProcessChargeback("pi_1", "fraudulent"))
	got = reloadAffiliate(t, affiliate.ID)
	assert.Equal(t, 15.0, got.TotalEarnings)
}

func TestProcessChargeback_UnknownPaymentIntentIsNoop(t *testing.T) {
	setupTestDB(t)
	createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)

	svc := NewCommissionService()
	require.NoError(t, svc.ProcessChargeback("pi_unknown", "fraudulent"))
}

func TestRecalculateEarnings_RebuildsCountersFromLedger(t *testing.T) {
	setupTestDB(t)
	affiliate := createTestAffiliate(t, "owner-1", "REF123", models.AffiliateStatusActive)
	createTestReferral(t, affiliate, "user-1")

	svc := NewCommissionService()
	require.NoError(t, svc.TrackSubscription("user-1", "sub-1", 100.0, "USD"))

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ProcessRecurringCommission("sub-1", 100.0, "pi_1", periodStart, periodStart.AddDate(0, 1, 0)))

	// Corrupt the cached counters
	require.NoError(t, database.DB.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Updates(map[string]interface{}{
			"pending_earnings": 999.0,
			"paid_earnings":    1.0,
			"total_earnings":   0.0,
			"total_referrals":  42,
		}).Error)

	got, err := svc.RecalculateEarnings(affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.PendingEarnings)
	assert.Equal(t, 0.0, got.PaidEarnings)
	assert.Equal(t, 30.0, got.TotalEarnings)
	assert.Equal(t, 1, got.TotalReferrals)
	assert.Equal(t, got.TotalEarnings, got.PendingEarnings+got.PaidEarnings)
}
