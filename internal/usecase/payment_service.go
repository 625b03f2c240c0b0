package usecase

import (
	"context"
	"errors"
	"time"

	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/infrastructure/payproc"
	"pourpass-backend/internal/metrics"
)

// Processor is the slice of the payment processor the engine needs.
type Processor interface {
	CreateIntent(ctx context.Context, idemKey string, amountCents int, currency string) (*payproc.Intent, error)
	GetIntent(ctx context.Context, id string) (*payproc.Intent, error)
	RefundBatch(ctx context.Context, intentRefs []string) error
}

// Processor webhook event types.
const (
	WebhookIntentSettled   = "payment_intent.settled"
	WebhookIntentFailed    = "payment_intent.failed"
	WebhookRefundCompleted = "refund.completed"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 30 * time.Second
)

type PaymentService struct {
	Store        Store
	Processor    Processor
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// GetOrCreatePaymentIntent returns the processor intent for the order,
// creating one if none exists yet. The idempotency key is the order id,
// so a retried client call can never double-charge: either we find the
// stored reference and fetch it, or the processor collapses the
// replayed create onto the original intent.
func (s *PaymentService) GetOrCreatePaymentIntent(ctx context.Context, buyerID, orderID string) (*payproc.Intent, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, domain.ErrNotOrderOwner
	}
	if o.PaymentIntentRef != "" {
		return s.Processor.GetIntent(ctx, o.PaymentIntentRef)
	}
	if o.Status != domain.OrderPendingPayment {
		return nil, domain.ErrInvalidTransition
	}
	intent, err := s.Processor.CreateIntent(ctx, o.ID, o.TotalCents, o.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetPaymentIntent(ctx, o.ID, intent.ID); err != nil {
		return nil, err
	}
	return intent, nil
}

// HandleWebhook processes one processor notification. The idempotency
// record is inserted before any side effect: a replayed event id is
// dropped here and performs nothing the second time.
func (s *PaymentService) HandleWebhook(ctx context.Context, eventID, eventType, intentRef string) error {
	fresh, err := s.Store.InsertWebhookEvent(ctx, &domain.WebhookEvent{
		ExternalID:  eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !fresh {
		metrics.WebhookDuplicates.Inc()
		return nil
	}

	o, err := s.Store.GetOrderByIntent(ctx, intentRef)
	if err != nil {
		return err
	}
	switch eventType {
	case WebhookIntentSettled:
		return s.settle(ctx, o.ID)
	case WebhookIntentFailed:
		_, err := s.Store.CancelOrder(ctx, o.ID, "payment declined")
		return err
	case WebhookRefundCompleted:
		if err := s.Store.SetRefundState(ctx, o.ID, domain.RefundDone); err != nil {
			return err
		}
		return s.Store.AppendEvent(ctx, &domain.OrderEvent{
			OrderID:   o.ID,
			EventType: domain.EventRefundDispatched,
			Metadata:  map[string]any{"source": "webhook"},
		})
	}
	// unknown event types are acknowledged, not errored, so the
	// processor stops retrying them
	return nil
}

// settle is shared by the webhook path and the polling fallback. It is
// idempotent: an order that already left pending_payment is a no-op.
func (s *PaymentService) settle(ctx context.Context, orderID string) error {
	_, err := s.Store.MarkPaid(ctx, orderID, time.Now().UTC())
	return err
}

// AwaitSettlement polls the processor until the intent settles, the
// payment fails, or the deadline passes. The wait is bounded: on
// timeout the caller gets ErrPaymentPending and is expected to re-check
// later rather than hang.
func (s *PaymentService) AwaitSettlement(ctx context.Context, buyerID, orderID string, timeout time.Duration) (*domain.Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, domain.ErrNotOrderOwner
	}
	if o.Status != domain.OrderPendingPayment {
		return o, nil
	}
	if o.PaymentIntentRef == "" {
		return nil, domain.ErrPaymentPending
	}

	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = s.PollTimeout
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		intent, err := s.Processor.GetIntent(ctx, o.PaymentIntentRef)
		if err == nil {
			switch intent.Status {
			case payproc.IntentSettled:
				if err := s.settle(ctx, o.ID); err != nil {
					return nil, err
				}
				return s.Store.GetOrder(ctx, o.ID)
			case payproc.IntentFailed:
				if _, err := s.Store.CancelOrder(ctx, o.ID, "payment declined"); err != nil {
					return nil, err
				}
				return nil, domain.ErrPaymentDeclined
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, domain.ErrPaymentPending
		case <-tick.C:
		}
	}
}

// Refund is the administrative path: a paid or ready_to_redeem order is
// moved to refunded, its inventory restored, and the refund dispatched
// immediately. A failed dispatch leaves the refund due for the sweeper
// to retry.
func (s *PaymentService) Refund(ctx context.Context, orderID string) error {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	won, err := s.Store.RefundOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidTransition
	}
	if o.PaymentIntentRef == "" {
		// never charged, nothing to dispatch
		return s.Store.SetRefundState(ctx, orderID, domain.RefundDone)
	}
	if err := s.Processor.RefundBatch(ctx, []string{o.PaymentIntentRef}); err != nil {
		return s.Store.AppendEvent(ctx, &domain.OrderEvent{
			OrderID:   orderID,
			EventType: domain.EventRefundFailed,
			Metadata:  map[string]any{"error": err.Error()},
		})
	}
	metrics.RefundBatches.Inc()
	if err := s.Store.SetRefundState(ctx, orderID, domain.RefundDone); err != nil {
		return err
	}
	return s.Store.AppendEvent(ctx, &domain.OrderEvent{
		OrderID:   orderID,
		EventType: domain.EventRefundDispatched,
		Metadata:  map[string]any{"source": "admin"},
	})
}

// IsRaceLost reports whether err is an expected concurrent-loser
// outcome rather than a fault.
func IsRaceLost(err error) bool {
	return errors.Is(err, domain.ErrInsufficientInventory) || errors.Is(err, domain.ErrAlreadyRedeemed)
}
