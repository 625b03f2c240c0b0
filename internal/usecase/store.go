package usecase

import (
	"context"
	"time"

	"pourpass-backend/internal/domain"
)

// Store is the durable state the engine runs against. All contended
// mutations are expressed as conditional writes: the boolean result
// says whether this caller won the transition, and a losing caller is
// handed back a clean false instead of blocking or corrupting state.
// Implementations must make each mutation and its timeline event one
// atomic unit.
type Store interface {
	GetTap(ctx context.Context, id string) (*domain.Tap, error)
	GetVenue(ctx context.Context, id string) (*domain.Venue, error)
	GetBuyer(ctx context.Context, id string) (*domain.Buyer, error)
	PutTap(ctx context.Context, t *domain.Tap) error
	PutVenue(ctx context.Context, v *domain.Venue) error
	PutBuyer(ctx context.Context, b *domain.Buyer) error

	// ReserveOrder atomically re-checks the tap under a row lock,
	// applies the combined decrement-and-threshold predicate, inserts
	// the order and appends its created event. The buyer's pending
	// window is re-checked in the same atomic section: another
	// pending_payment order created after pendingSince returns
	// domain.ErrPendingOrderExists. A conditional decrement that loses
	// the race returns domain.ErrInsufficientInventory.
	ReserveOrder(ctx context.Context, o *domain.Order, pendingSince time.Time) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByIntent(ctx context.Context, intentRef string) (*domain.Order, error)
	HasRecentPendingOrder(ctx context.Context, buyerID string, since time.Time) (bool, error)

	// SetPaymentIntent stores the processor reference once; replaying
	// the same reference is a no-op.
	SetPaymentIntent(ctx context.Context, orderID, intentRef string) error

	// MarkPaid moves pending_payment to ready_to_redeem, stamping
	// paid_at and appending both the paid and ready_to_redeem events.
	// A false result means the order already left pending_payment.
	MarkPaid(ctx context.Context, orderID string, at time.Time) (bool, error)

	// CancelOrder moves pending_payment to cancelled and restores the
	// reserved tap volume.
	CancelOrder(ctx context.Context, orderID, reason string) (bool, error)

	// SetToken stores the redemption token while the order is still
	// ready_to_redeem.
	SetToken(ctx context.Context, orderID, token string, expiresAt time.Time) (bool, error)

	// RedeemOrder is the single-use guarantee: a conditional update
	// from ready_to_redeem to redeemed. Exactly one concurrent caller
	// sees true.
	RedeemOrder(ctx context.Context, orderID string, at time.Time) (bool, error)

	StartPour(ctx context.Context, orderID string) (bool, error)
	CompletePour(ctx context.Context, orderID string, at time.Time) (bool, error)

	// RefundOrder moves paid or ready_to_redeem to refunded, restores
	// inventory and marks the refund due for dispatch.
	RefundOrder(ctx context.Context, orderID string) (bool, error)

	// ExpireDue expires every ready_to_redeem order past its deadline,
	// restoring tap volume per order. Overlapping calls partition the
	// work between them rather than double-processing rows.
	ExpireDue(ctx context.Context, now time.Time) ([]domain.Order, error)

	ListRefundDue(ctx context.Context) ([]domain.Order, error)
	SetRefundState(ctx context.Context, orderID, state string) error

	// InsertWebhookEvent returns false when the external id was seen
	// before; callers must check it before applying any side effect.
	InsertWebhookEvent(ctx context.Context, ev *domain.WebhookEvent) (bool, error)

	AppendEvent(ctx context.Context, ev *domain.OrderEvent) error
	ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}
