package domain

import "time"

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderReadyToRedeem  OrderStatus = "ready_to_redeem"
	OrderRedeemed       OrderStatus = "redeemed"
	OrderPouring        OrderStatus = "pouring"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderExpired        OrderStatus = "expired"
	OrderRefunded       OrderStatus = "refunded"
)

// transitions is the complete set of legal status moves. Anything not
// listed here is rejected, never silently ignored.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPendingPayment: {OrderPaid, OrderCancelled},
	OrderPaid:           {OrderReadyToRedeem, OrderRefunded},
	OrderReadyToRedeem:  {OrderRedeemed, OrderExpired, OrderRefunded},
	OrderRedeemed:       {OrderPouring},
	OrderPouring:        {OrderCompleted},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCompleted, OrderCancelled, OrderExpired, OrderRefunded:
		return true
	}
	return false
}

// RefundState tracks whether a refund still has to be dispatched to the
// processor for this order. It is orthogonal to the status machine:
// expiry and administrative refunds mark the order "due", a successful
// dispatch marks it "done", and the sweeper retries anything left due.
const (
	RefundNone = ""
	RefundDue  = "due"
	RefundDone = "done"
)

type Order struct {
	ID               string      `json:"orderId"`
	BuyerID          string      `json:"buyerId"`
	VenueID          string      `json:"venueId"`
	TapID            string      `json:"tapId"`
	BeerID           string      `json:"beerId"`
	Quantity         int         `json:"quantity"`
	PourSizeOz       float64     `json:"pourSizeOz"`
	UnitPriceCents   int         `json:"unitPriceCents"`
	TotalCents       int         `json:"totalCents"`
	Currency         string      `json:"currency"`
	Status           OrderStatus `json:"status"`
	QRToken          string      `json:"-"`
	QRExpiresAt      time.Time   `json:"qrExpiresAt,omitzero"`
	PaymentIntentRef string      `json:"-"`
	RefundState      string      `json:"-"`
	PaidAt           *time.Time  `json:"paidAt,omitempty"`
	RedeemedAt       *time.Time  `json:"redeemedAt,omitempty"`
	CompletedAt      *time.Time  `json:"completedAt,omitempty"`
	ExpiresAt        time.Time   `json:"expiresAt"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ReservedOz is the tap volume held by this order while it is live.
func (o *Order) ReservedOz() float64 {
	return float64(o.Quantity) * o.PourSizeOz
}
