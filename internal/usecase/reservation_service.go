package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/metrics"
)

const (
	DefaultOrderTTL      = 15 * time.Minute
	DefaultPendingWindow = 2 * time.Minute
)

type ReservationService struct {
	Store         Store
	OrderTTL      time.Duration
	PendingWindow time.Duration
}

func (s *ReservationService) orderTTL() time.Duration {
	if s.OrderTTL > 0 {
		return s.OrderTTL
	}
	return DefaultOrderTTL
}

func (s *ReservationService) pendingWindow() time.Duration {
	if s.PendingWindow > 0 {
		return s.PendingWindow
	}
	return DefaultPendingWindow
}

// CreateOrder validates the reservation preconditions and atomically
// reserves tap volume for a new pending_payment order. The inventory
// and pending-window checks are re-run inside the store's reservation
// transaction, so the reads here can be stale without risking an
// oversell or a second concurrent pending order per buyer.
func (s *ReservationService) CreateOrder(ctx context.Context, buyerID, tapID string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	pendingSince := now.Add(-s.pendingWindow())
	recent, err := s.Store.HasRecentPendingOrder(ctx, buyerID, pendingSince)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, domain.ErrPendingOrderExists
	}

	tap, err := s.Store.GetTap(ctx, tapID)
	if err != nil {
		return nil, err
	}
	if tap.Status != domain.TapActive {
		return nil, domain.ErrTapInactive
	}
	if !tap.TempOK() {
		return nil, domain.ErrTempNotOK
	}

	venue, err := s.Store.GetVenue(ctx, tap.VenueID)
	if err != nil {
		return nil, err
	}
	if !venue.Active {
		return nil, domain.ErrVenueInactive
	}
	if !venue.MobileOrderingEnabled {
		return nil, domain.ErrMobileOrderingDisabled
	}

	buyer, err := s.Store.GetBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if !buyer.AgeVerified {
		return nil, domain.ErrAgeNotVerified
	}

	if !tap.HasPricing() {
		return nil, domain.ErrNoPricing
	}

	o := &domain.Order{
		ID:             uuid.NewString(),
		BuyerID:        buyerID,
		VenueID:        tap.VenueID,
		TapID:          tap.ID,
		BeerID:         tap.BeerID,
		Quantity:       quantity,
		PourSizeOz:     tap.PourSizeOz,
		UnitPriceCents: tap.PriceCents,
		TotalCents:     tap.PriceCents * quantity,
		Currency:       tap.Currency,
		Status:         domain.OrderPendingPayment,
		ExpiresAt:      now.Add(s.orderTTL()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.ReserveOrder(ctx, o, pendingSince); err != nil {
		return nil, err
	}
	metrics.OrdersCreated.Inc()
	return o, nil
}
