package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/infrastructure/payproc"
	"pourpass-backend/internal/infrastructure/repo"
)

// fakeProcessor records every processor call so tests can assert on
// exactly-once behavior.
type fakeProcessor struct {
	mu           sync.Mutex
	createCalls  int
	refundCalls  int
	refunded     [][]string
	intents      map[string]*payproc.Intent
	intentStatus map[string]string
	refundErr    error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		intents:      map[string]*payproc.Intent{},
		intentStatus: map[string]string{},
	}
}

func (p *fakeProcessor) CreateIntent(ctx context.Context, idemKey string, amountCents int, currency string) (*payproc.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if in, ok := p.intents[idemKey]; ok {
		return in, nil
	}
	p.createCalls++
	in := &payproc.Intent{
		ID:           "pi_" + idemKey,
		ClientSecret: "secret_" + idemKey,
		Status:       payproc.IntentRequiresPayment,
		AmountCents:  amountCents,
		Currency:     currency,
	}
	p.intents[idemKey] = in
	return in, nil
}

func (p *fakeProcessor) GetIntent(ctx context.Context, id string) (*payproc.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.intentStatus[id]
	if status == "" {
		status = payproc.IntentRequiresPayment
	}
	return &payproc.Intent{ID: id, Status: status}, nil
}

func (p *fakeProcessor) RefundBatch(ctx context.Context, intentRefs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refundCalls++
	cp := make([]string, len(intentRefs))
	copy(cp, intentRefs)
	p.refunded = append(p.refunded, cp)
	return nil
}

func (p *fakeProcessor) setIntentStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intentStatus[id] = status
}

func (p *fakeProcessor) setRefundErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundErr = err
}

type testEnv struct {
	store        *repo.MemoryStore
	processor    *fakeProcessor
	reservations *ReservationService
	payments     *PaymentService
	tokens       *TokenService
	sweeper      *Sweeper
}

func newTestEnv() *testEnv {
	store := repo.NewMemoryStore()
	proc := newFakeProcessor()
	return &testEnv{
		store:        store,
		processor:    proc,
		reservations: &ReservationService{Store: store},
		payments: &PaymentService{
			Store:        store,
			Processor:    proc,
			PollInterval: time.Millisecond,
			PollTimeout:  50 * time.Millisecond,
		},
		tokens:  &TokenService{Store: store, Secret: []byte("test-token-secret")},
		sweeper: &Sweeper{Store: store, Processor: proc},
	}
}

// seedVenue installs an active venue with mobile ordering on.
func (e *testEnv) seedVenue(ctx context.Context) string {
	v := &domain.Venue{
		ID:                    "venue-1",
		Name:                  "Barrel House",
		Active:                true,
		MobileOrderingEnabled: true,
		CreatedAt:             time.Now().UTC(),
	}
	_ = e.store.PutVenue(ctx, v)
	return v.ID
}

// seedTap installs an active, cold tap with pricing.
func (e *testEnv) seedTap(ctx context.Context, venueID string, ozRemaining, threshold, pourSize float64) string {
	now := time.Now().UTC()
	t := &domain.Tap{
		ID:             "tap-1",
		VenueID:        venueID,
		BeerID:         "beer-1",
		Status:         domain.TapActive,
		OzRemaining:    ozRemaining,
		LowThresholdOz: threshold,
		TempF:          38,
		PourSizeOz:     pourSize,
		PriceCents:     900,
		Currency:       "USD",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_ = e.store.PutTap(ctx, t)
	return t.ID
}

// seedBuyer installs an age-verified buyer.
func (e *testEnv) seedBuyer(ctx context.Context, id string) string {
	now := time.Now().UTC()
	_ = e.store.PutBuyer(ctx, &domain.Buyer{
		ID:            id,
		AgeVerified:   true,
		AgeVerifiedAt: now,
		CreatedAt:     now,
	})
	return id
}

// seedDefault wires up the common venue/tap/buyer fixture: 144 oz on
// tap, 24 oz threshold, 12 oz pours.
func (e *testEnv) seedDefault(ctx context.Context) (buyerID, tapID string) {
	venueID := e.seedVenue(ctx)
	tapID = e.seedTap(ctx, venueID, 144, 24, 12)
	buyerID = e.seedBuyer(ctx, "buyer-1")
	return buyerID, tapID
}

// readyOrder creates an order and settles its payment, leaving it
// ready_to_redeem with an intent reference attached.
func (e *testEnv) readyOrder(ctx context.Context, buyerID, tapID string, quantity int) (*domain.Order, error) {
	o, err := e.reservations.CreateOrder(ctx, buyerID, tapID, quantity)
	if err != nil {
		return nil, err
	}
	if _, err := e.payments.GetOrCreatePaymentIntent(ctx, buyerID, o.ID); err != nil {
		return nil, err
	}
	if _, err := e.store.MarkPaid(ctx, o.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return e.store.GetOrder(ctx, o.ID)
}

func countEvents(events []domain.OrderEvent, eventType string) int {
	n := 0
	for _, ev := range events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

func (e *testEnv) seedBuyerN(ctx context.Context, i int) string {
	return e.seedBuyer(ctx, fmt.Sprintf("buyer-%d", i))
}
