package usecase

import (
	"context"
	"log/slog"
	"time"

	"pourpass-backend/internal/cache"
	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/metrics"
)

const DefaultSweepInterval = 60 * time.Second

// Sweeper expires stale ready_to_redeem orders and dispatches the
// refunds they owe. Expiry and refund dispatch are deliberately
// decoupled: the sweep transaction commits first, then one batch call
// goes to the processor, so a processor outage never blocks future
// sweeps. The refunds just stay due and the next run retries them.
type Sweeper struct {
	Store     Store
	Processor Processor
	Cache     cache.Cache
	Interval  time.Duration
	Log       *slog.Logger
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return DefaultSweepInterval
}

func (s *Sweeper) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Run sweeps on a fixed period until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log().Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass: expire due orders (restoring their tap volume),
// then dispatch at most one refund batch covering everything owed,
// including refunds left over from earlier failed dispatches. Returns
// the number of orders expired this pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := s.Store.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) > 0 {
		metrics.OrdersExpired.Add(float64(len(expired)))
		s.log().Info("expired stale orders", "count", len(expired))
	}
	if s.Cache != nil {
		// drop the cached ready_to_redeem status so pollers see the
		// expiry immediately instead of after the TTL
		for _, o := range expired {
			if err := s.Cache.Delete(ctx, cache.OrderKey(o.ID)); err != nil {
				s.log().Warn("cache invalidation failed", "orderId", o.ID, "error", err)
			}
		}
	}

	due, err := s.Store.ListRefundDue(ctx)
	if err != nil {
		return len(expired), err
	}
	if len(due) == 0 {
		return len(expired), nil
	}

	refs := make([]string, 0, len(due))
	for _, o := range due {
		if o.PaymentIntentRef == "" {
			// reserved but never charged; nothing for the processor
			if err := s.Store.SetRefundState(ctx, o.ID, domain.RefundDone); err != nil {
				return len(expired), err
			}
			continue
		}
		refs = append(refs, o.PaymentIntentRef)
	}
	if len(refs) == 0 {
		return len(expired), nil
	}

	if err := s.Processor.RefundBatch(ctx, refs); err != nil {
		s.log().Warn("refund batch failed, will retry next sweep", "count", len(refs), "error", err)
		for _, o := range due {
			if o.PaymentIntentRef == "" {
				continue
			}
			if evErr := s.Store.AppendEvent(ctx, &domain.OrderEvent{
				OrderID:   o.ID,
				EventType: domain.EventRefundFailed,
				Metadata:  map[string]any{"error": err.Error()},
			}); evErr != nil {
				return len(expired), evErr
			}
		}
		return len(expired), nil
	}

	metrics.RefundBatches.Inc()
	for _, o := range due {
		if o.PaymentIntentRef == "" {
			continue
		}
		if err := s.Store.SetRefundState(ctx, o.ID, domain.RefundDone); err != nil {
			return len(expired), err
		}
		if err := s.Store.AppendEvent(ctx, &domain.OrderEvent{
			OrderID:   o.ID,
			EventType: domain.EventRefundDispatched,
			Metadata:  map[string]any{"source": "sweeper"},
		}); err != nil {
			return len(expired), err
		}
	}
	return len(expired), nil
}
