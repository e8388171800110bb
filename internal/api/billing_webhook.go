package api

import (
	"encoding/json"
	"net/http"
	"time"

	"affiliate-api/internal/services"
	"affiliate-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// BillingEvent is the payment processor's webhook envelope
type BillingEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SubscriptionCreatedData carries the first paid subscription of a customer
type SubscriptionCreatedData struct {
	UserID         string  `json:"user_id"`
	SubscriptionID string  `json:"subscription_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

// InvoicePaidData carries one renewal charge of an existing subscription
type InvoicePaidData struct {
	SubscriptionID  string  `json:"subscription_id"`
	Amount          float64 `json:"amount"`
	PaymentIntentID string  `json:"payment_intent_id"`
	PeriodStart     int64   `json:"period_start"` // unix seconds
	PeriodEnd       int64   `json:"period_end"`   // unix seconds
}

// ChargeRefundedData carries a refund or dispute against an earlier charge
type ChargeRefundedData struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Reason          string `json:"reason"`
}

// HandleBillingWebhook receives signed billing events from the payment processor.
// Delivery is at-least-once: duplicates answer 200 so the processor stops
// redelivering, store failures answer 500 so it retries.
func HandleBillingWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Failed to read request body",
		})
		return
	}

	// Signature covers the raw body, verify before parsing anything
	if err := signatureService.Verify(c.GetHeader("X-Webhook-Signature"), payload); err != nil {
		logging.Warnf("Billing webhook rejected, bad signature: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid signature",
		})
		return
	}

	var event BillingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid event payload: " + err.Error(),
		})
		return
	}

	// Fast-path dedup on the event id. A miss here is fine, the unique index
	// on commission rows catches whatever slips through.
	if replayGuard.Seen(event.ID) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Duplicate event ignored",
		})
		return
	}

	logging.Infof("Billing webhook received - event: %s, type: %s", event.ID, event.Type)

	if err := dispatchBillingEvent(&event); err != nil {
		logging.Errorf("Billing event processing failed - event: %s, type: %s, error: %v", event.ID, event.Type, err)
		// Forget the event id so the redelivery is not short-circuited
		replayGuard.Forget(event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Event processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event processed",
	})
}

// dispatchBillingEvent routes an event to the commission engine by type
func dispatchBillingEvent(event *BillingEvent) error {
	commissionService := services.NewCommissionService()

	switch event.Type {
	case "subscription.created":
		var data SubscriptionCreatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			logging.Warnf("Malformed subscription.created data ignored - event: %s, error: %v", event.ID, err)
			return nil
		}
		return commissionService.TrackSubscription(data.UserID, data.SubscriptionID, data.Amount, data.Currency)

	case "invoice.payment_succeeded":
		var data InvoicePaidData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			logging.Warnf("Malformed invoice.payment_succeeded data ignored - event: %s, error: %v", event.ID, err)
			return nil
		}
		periodStart := time.Unix(data.PeriodStart, 0).UTC()
		periodEnd := time.Unix(data.PeriodEnd, 0).UTC()
		return commissionService.ProcessRecurringCommission(data.SubscriptionID, data.Amount, data.PaymentIntentID, periodStart, periodEnd)

	case "charge.refunded":
		var data ChargeRefundedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			logging.Warnf("Malformed charge.refunded data ignored - event: %s, error: %v", event.ID, err)
			return nil
		}
		return commissionService.ProcessChargeback(data.PaymentIntentID, data.Reason)

	default:
		// Processors send event types we never subscribed to, acknowledge them
		logging.Infof("Unhandled billing event type acknowledged - event: %s, type: %s", event.ID, event.Type)
		return nil
	}
}
