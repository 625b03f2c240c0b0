package domain

import "time"

// Event types written to the order timeline. Every status change in the
// engine appends exactly one of these in the same transaction as the
// change itself.
const (
	EventCreated              = "created"
	EventPaymentIntentCreated = "payment_intent_created"
	EventPaid                 = "paid"
	EventReadyToRedeem        = "ready_to_redeem"
	EventTokenIssued          = "token_issued"
	EventRedeemed             = "redeemed"
	EventPourStarted          = "pour_started"
	EventCompleted            = "completed"
	EventCancelled            = "cancelled"
	EventExpired              = "expired"
	EventRefundRequested      = "refund_requested"
	EventRefundDispatched     = "refund_dispatched"
	EventRefundFailed         = "refund_failed"
)

// OrderEvent is append-only. Events are never updated or deleted; they
// form the audit timeline for support and dispute handling.
type OrderEvent struct {
	ID        string         `json:"eventId"`
	OrderID   string         `json:"orderId"`
	EventType string         `json:"eventType"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// WebhookEvent records an external notification id the engine has
// already acted on. The insert happens before any side effect; a
// duplicate-key failure on insert is the deduplication signal.
type WebhookEvent struct {
	ExternalID  string    `json:"externalId"`
	EventType   string    `json:"eventType"`
	ProcessedAt time.Time `json:"processedAt"`
}
