package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"pourpass-backend/internal/domain"
)

// MemoryStore keeps the whole engine state under one mutex. The lock
// makes every conditional write atomic, mirroring the row-lock and
// conditional-update semantics of the postgres store. Used by tests
// and by dev mode when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	taps     map[string]*domain.Tap
	venues   map[string]*domain.Venue
	buyers   map[string]*domain.Buyer
	orders   map[string]*domain.Order
	events   map[string][]domain.OrderEvent
	webhooks map[string]*domain.WebhookEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		taps:     make(map[string]*domain.Tap),
		venues:   make(map[string]*domain.Venue),
		buyers:   make(map[string]*domain.Buyer),
		orders:   make(map[string]*domain.Order),
		events:   make(map[string][]domain.OrderEvent),
		webhooks: make(map[string]*domain.WebhookEvent),
	}
}

func (s *MemoryStore) GetTap(ctx context.Context, id string) (*domain.Tap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.taps[id]
	if !ok {
		return nil, domain.ErrTapNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, domain.ErrVenueInactive
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) GetBuyer(ctx context.Context, id string) (*domain.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buyers[id]
	if !ok {
		return nil, domain.ErrBuyerNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) PutTap(ctx context.Context, t *domain.Tap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.taps[t.ID] = &cp
	return nil
}

func (s *MemoryStore) PutVenue(ctx context.Context, v *domain.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.venues[v.ID] = &cp
	return nil
}

func (s *MemoryStore) PutBuyer(ctx context.Context, b *domain.Buyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.buyers[b.ID] = &cp
	return nil
}

// PutOrder is a seeding helper for tests and dev fixtures; request
// paths never write orders directly.
func (s *MemoryStore) PutOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) ReserveOrder(ctx context.Context, o *domain.Order, pendingSince time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.BuyerID == o.BuyerID && existing.Status == domain.OrderPendingPayment &&
			existing.CreatedAt.After(pendingSince) {
			return domain.ErrPendingOrderExists
		}
	}

	tap, ok := s.taps[o.TapID]
	if !ok {
		return domain.ErrTapNotFound
	}
	if tap.Status != domain.TapActive {
		return domain.ErrTapInactive
	}
	if !tap.TempOK() {
		return domain.ErrTempNotOK
	}
	vol := o.ReservedOz()
	if tap.OzRemaining-vol < tap.LowThresholdOz {
		return domain.ErrInsufficientInventory
	}
	tap.OzRemaining -= vol
	tap.UpdatedAt = time.Now().UTC()

	cp := *o
	s.orders[o.ID] = &cp
	s.appendEventLocked(o.ID, domain.EventCreated, map[string]any{
		"tapId":    o.TapID,
		"quantity": o.Quantity,
		"totalOz":  vol,
	})
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetOrderByIntent(ctx context.Context, intentRef string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentIntentRef == intentRef && intentRef != "" {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *MemoryStore) HasRecentPendingOrder(ctx context.Context, buyerID string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.BuyerID == buyerID && o.Status == domain.OrderPendingPayment && o.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SetPaymentIntent(ctx context.Context, orderID, intentRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.PaymentIntentRef == intentRef {
		return nil
	}
	o.PaymentIntentRef = intentRef
	o.UpdatedAt = time.Now().UTC()
	s.appendEventLocked(orderID, domain.EventPaymentIntentCreated, map[string]any{"intentRef": intentRef})
	return nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, orderID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPendingPayment {
		return false, nil
	}
	o.Status = domain.OrderReadyToRedeem
	o.PaidAt = &at
	o.UpdatedAt = at
	s.appendEventLocked(orderID, domain.EventPaid, nil)
	s.appendEventLocked(orderID, domain.EventReadyToRedeem, nil)
	return true, nil
}

func (s *MemoryStore) CancelOrder(ctx context.Context, orderID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPendingPayment {
		return false, nil
	}
	o.Status = domain.OrderCancelled
	o.UpdatedAt = time.Now().UTC()
	s.restoreInventoryLocked(o)
	s.appendEventLocked(orderID, domain.EventCancelled, map[string]any{"reason": reason})
	return true, nil
}

func (s *MemoryStore) SetToken(ctx context.Context, orderID, token string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderReadyToRedeem {
		return false, nil
	}
	o.QRToken = token
	o.QRExpiresAt = expiresAt
	o.UpdatedAt = time.Now().UTC()
	s.appendEventLocked(orderID, domain.EventTokenIssued, map[string]any{"expiresAt": expiresAt})
	return true, nil
}

func (s *MemoryStore) RedeemOrder(ctx context.Context, orderID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderReadyToRedeem {
		return false, nil
	}
	o.Status = domain.OrderRedeemed
	o.RedeemedAt = &at
	o.UpdatedAt = at
	s.appendEventLocked(orderID, domain.EventRedeemed, nil)
	return true, nil
}

func (s *MemoryStore) StartPour(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderRedeemed {
		return false, nil
	}
	o.Status = domain.OrderPouring
	o.UpdatedAt = time.Now().UTC()
	s.appendEventLocked(orderID, domain.EventPourStarted, nil)
	return true, nil
}

func (s *MemoryStore) CompletePour(ctx context.Context, orderID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPouring {
		return false, nil
	}
	o.Status = domain.OrderCompleted
	o.CompletedAt = &at
	o.UpdatedAt = at
	s.appendEventLocked(orderID, domain.EventCompleted, nil)
	return true, nil
}

func (s *MemoryStore) RefundOrder(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPaid && o.Status != domain.OrderReadyToRedeem {
		return false, nil
	}
	o.Status = domain.OrderRefunded
	o.RefundState = domain.RefundDue
	o.UpdatedAt = time.Now().UTC()
	s.restoreInventoryLocked(o)
	s.appendEventLocked(orderID, domain.EventRefundRequested, nil)
	return true, nil
}

func (s *MemoryStore) ExpireDue(ctx context.Context, now time.Time) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []domain.Order
	for _, o := range s.orders {
		if o.Status != domain.OrderReadyToRedeem || !o.ExpiresAt.Before(now) {
			continue
		}
		o.Status = domain.OrderExpired
		o.RefundState = domain.RefundDue
		o.UpdatedAt = now
		s.restoreInventoryLocked(o)
		s.appendEventLocked(o.ID, domain.EventExpired, map[string]any{"expiredAt": now})
		expired = append(expired, *o)
	}
	return expired, nil
}

func (s *MemoryStore) ListRefundDue(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.Order
	for _, o := range s.orders {
		if o.RefundState == domain.RefundDue {
			due = append(due, *o)
		}
	}
	return due, nil
}

func (s *MemoryStore) SetRefundState(ctx context.Context, orderID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.RefundState = state
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) InsertWebhookEvent(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.webhooks[ev.ExternalID]; seen {
		return false, nil
	}
	cp := *ev
	s.webhooks[ev.ExternalID] = &cp
	return true, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev *domain.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.events[ev.OrderID] = append(s.events[ev.OrderID], cp)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.events[orderID]
	out := make([]domain.OrderEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (s *MemoryStore) restoreInventoryLocked(o *domain.Order) {
	if tap, ok := s.taps[o.TapID]; ok {
		tap.OzRemaining += o.ReservedOz()
		tap.UpdatedAt = time.Now().UTC()
	}
}

func (s *MemoryStore) appendEventLocked(orderID, eventType string, meta map[string]any) {
	s.events[orderID] = append(s.events[orderID], domain.OrderEvent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		EventType: eventType,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
}
