package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderPendingPayment, OrderPaid},
		{OrderPendingPayment, OrderCancelled},
		{OrderPaid, OrderReadyToRedeem},
		{OrderPaid, OrderRefunded},
		{OrderReadyToRedeem, OrderRedeemed},
		{OrderReadyToRedeem, OrderExpired},
		{OrderReadyToRedeem, OrderRefunded},
		{OrderRedeemed, OrderPouring},
		{OrderPouring, OrderCompleted},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be legal", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderPendingPayment, OrderReadyToRedeem},
		{OrderPendingPayment, OrderRedeemed},
		{OrderReadyToRedeem, OrderPouring},
		{OrderRedeemed, OrderCompleted},
		{OrderRedeemed, OrderRefunded},
		{OrderExpired, OrderReadyToRedeem},
		{OrderCancelled, OrderPaid},
		{OrderCompleted, OrderPouring},
		{OrderRefunded, OrderReadyToRedeem},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be illegal", tt.from, tt.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []OrderStatus{OrderCompleted, OrderCancelled, OrderExpired, OrderRefunded} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if len(transitions[s]) != 0 {
			t.Errorf("terminal %s has outgoing transitions", s)
		}
	}
	for _, s := range []OrderStatus{OrderPendingPayment, OrderPaid, OrderReadyToRedeem, OrderRedeemed, OrderPouring} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestReservedOz(t *testing.T) {
	o := &Order{Quantity: 3, PourSizeOz: 12}
	if got := o.ReservedOz(); got != 36 {
		t.Errorf("ReservedOz = %v, want 36", got)
	}
}

func TestTapTempOK(t *testing.T) {
	tests := []struct {
		tempF float64
		ok    bool
	}{
		{0, false},
		{-4, false},
		{38, true},
		{MaxServingTempF, true},
		{MaxServingTempF + 0.1, false},
	}
	for _, tt := range tests {
		tap := &Tap{TempF: tt.tempF}
		if tap.TempOK() != tt.ok {
			t.Errorf("TempOK(%v) = %v, want %v", tt.tempF, tap.TempOK(), tt.ok)
		}
	}
}

func TestCode(t *testing.T) {
	if got := Code(ErrInsufficientInventory); got != "INSUFFICIENT_INVENTORY" {
		t.Errorf("Code = %q", got)
	}
	if got := Code(ErrNotOrderOwner); got != "FORBIDDEN" {
		t.Errorf("Code = %q", got)
	}
	if got := Code(errors.New("boom")); got != "INTERNAL_ERROR" {
		t.Errorf("Code for unknown error = %q", got)
	}
}
