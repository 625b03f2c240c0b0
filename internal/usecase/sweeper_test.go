package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pourpass-backend/internal/cache"
	"pourpass-backend/internal/domain"
)

// fakeCache records entries and deletions for invalidation assertions.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (c *fakeCache) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// backdate rewinds an order's reservation deadline so a sweep sees it
// as stale.
func backdate(t *testing.T, env *testEnv, orderID string, by time.Duration) {
	t.Helper()
	ctx := context.Background()
	o, err := env.store.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	o.ExpiresAt = time.Now().UTC().Add(-by)
	if err := env.store.PutOrder(ctx, o); err != nil {
		t.Fatalf("PutOrder: %v", err)
	}
}

func TestSweepExpiresStaleOrders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	buyerID, tapID := env.seedDefault(ctx)

	o, err := env.readyOrder(ctx, buyerID, tapID, 2)
	if err != nil {
		t.Fatalf("readyOrder: %v", err)
	}
	backdate(t, env, o.ID, time.Minute)

	n, err := env.sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	stored, _ := env.store.GetOrder(ctx, o.ID)
	if stored.Status != domain.OrderExpired {
		t.Errorf("status = %s, want %s", stored.Status, domain.OrderExpired)
	}
	if stored.RefundState != domain.RefundDone {
		t.Errorf("refund state = %q, want %q", stored.RefundState, domain.RefundDone)
	}
	tap, _ := env.store.GetTap(ctx, tapID)
	if tap.OzRemaining != 144 {
		t.Errorf("remaining = %v, want 144 back", tap.OzRemaining)
	}
	if env.processor.refundCalls != 1 {
		t.Errorf("refund batches = %d, want 1", env.processor.refundCalls)
	}

	events, _ := env.store.ListEvents(ctx, o.ID)
	if countEvents(events, domain.EventExpired) != 1 {
		t.Errorf("expired events = %d, want 1", countEvents(events, domain.EventExpired))
	}
	if countEvents(events, domain.EventRefundDispatched) != 1 {
		t.Errorf("refund_dispatched events = %d, want 1", countEvents(events, domain.EventRefundDispatched))
	}
}

func TestSweepLeavesLiveOrdersAlone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	buyerID, tapID := env.seedDefault(ctx)

	o, err := env.readyOrder(ctx, buyerID, tapID, 1)
	if err != nil {
		t.Fatalf("readyOrder: %v", err)
	}

	n, err := env.sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired = %d, want 0", n)
	}
	stored, _ := env.store.GetOrder(ctx, o.ID)
	if stored.Status != domain.OrderReadyToRedeem {
		t.Errorf("status = %s, want untouched %s", stored.Status, domain.OrderReadyToRedeem)
	}
}

// Several stale orders owe refunds; the sweep must cover them all with
// a single processor call.
func TestSweepBatchesRefunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	venueID := env.seedVenue(ctx)
	tapID := env.seedTap(ctx, venueID, 144, 24, 12)

	var ids []string
	for i := 0; i < 3; i++ {
		buyer := env.seedBuyerN(ctx, i)
		o, err := env.readyOrder(ctx, buyer, tapID, 1)
		if err != nil {
			t.Fatalf("readyOrder %d: %v", i, err)
		}
		backdate(t, env, o.ID, time.Minute)
		ids = append(ids, o.ID)
	}

	n, err := env.sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("expired = %d, want 3", n)
	}
	if env.processor.refundCalls != 1 {
		t.Fatalf("refund batches = %d, want exactly 1", env.processor.refundCalls)
	}
	if got := len(env.processor.refunded[0]); got != 3 {
		t.Errorf("batch size = %d, want 3", got)
	}
	for _, id := range ids {
		o, _ := env.store.GetOrder(ctx, id)
		if o.RefundState != domain.RefundDone {
			t.Errorf("order %s refund state = %q, want done", id, o.RefundState)
		}
	}
}

func TestSweepRetriesFailedRefunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	buyerID, tapID := env.seedDefault(ctx)

	o, err := env.readyOrder(ctx, buyerID, tapID, 1)
	if err != nil {
		t.Fatalf("readyOrder: %v", err)
	}
	backdate(t, env, o.ID, time.Minute)
	env.processor.setRefundErr(errors.New("processor down"))

	if _, err := env.sweeper.Sweep(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	stored, _ := env.store.GetOrder(ctx, o.ID)
	if stored.Status != domain.OrderExpired {
		t.Errorf("status = %s, want %s despite refund failure", stored.Status, domain.OrderExpired)
	}
	if stored.RefundState != domain.RefundDue {
		t.Errorf("refund state = %q, want still due", stored.RefundState)
	}
	events, _ := env.store.ListEvents(ctx, o.ID)
	if countEvents(events, domain.EventRefundFailed) != 1 {
		t.Errorf("refund_failed events = %d, want 1", countEvents(events, domain.EventRefundFailed))
	}

	// processor recovers; the next sweep picks the refund back up
	env.processor.setRefundErr(nil)
	if _, err := env.sweeper.Sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	stored, _ = env.store.GetOrder(ctx, o.ID)
	if stored.RefundState != domain.RefundDone {
		t.Errorf("refund state = %q, want done after retry", stored.RefundState)
	}
	if env.processor.refundCalls != 1 {
		t.Errorf("successful batches = %d, want 1", env.processor.refundCalls)
	}
}

// An order that expired without ever being charged is settled locally
// with no processor traffic.
func TestSweepSkipsUnchargedOrders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	buyerID, tapID := env.seedDefault(ctx)

	o, err := env.reservations.CreateOrder(ctx, buyerID, tapID, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := env.store.MarkPaid(ctx, o.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	backdate(t, env, o.ID, time.Minute)

	if _, err := env.sweeper.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if env.processor.refundCalls != 0 {
		t.Errorf("refund batches = %d, want 0", env.processor.refundCalls)
	}
	stored, _ := env.store.GetOrder(ctx, o.ID)
	if stored.RefundState != domain.RefundDone {
		t.Errorf("refund state = %q, want done", stored.RefundState)
	}
}

// A cached ready_to_redeem status must not outlive the expiry; the
// sweep drops the entry rather than waiting out the TTL.
func TestSweepInvalidatesStatusCache(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	buyerID, tapID := env.seedDefault(ctx)

	o, err := env.readyOrder(ctx, buyerID, tapID, 1)
	if err != nil {
		t.Fatalf("readyOrder: %v", err)
	}
	backdate(t, env, o.ID, time.Minute)

	fc := newFakeCache()
	if err := fc.Set(ctx, cache.OrderKey(o.ID), "cached"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.sweeper.Cache = fc

	if _, err := env.sweeper.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if _, err := fc.Get(ctx, cache.OrderKey(o.ID)); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("cached status survived the expiry: err = %v, want %v", err, cache.ErrMiss)
	}
	if len(fc.deleted) != 1 || fc.deleted[0] != cache.OrderKey(o.ID) {
		t.Errorf("deleted keys = %v, want just %q", fc.deleted, cache.OrderKey(o.ID))
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	env := newTestEnv()
	env.sweeper.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
