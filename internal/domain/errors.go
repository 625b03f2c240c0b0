package domain

import "errors"

// Reservation preconditions.
var (
	ErrTapNotFound            = errors.New("tap not found")
	ErrTapInactive            = errors.New("tap is not active")
	ErrTempNotOK              = errors.New("tap temperature out of range")
	ErrVenueInactive          = errors.New("venue is not active")
	ErrMobileOrderingDisabled = errors.New("venue has mobile ordering disabled")
	ErrBuyerNotFound          = errors.New("buyer not found")
	ErrAgeNotVerified         = errors.New("buyer is not age verified")
	ErrNoPricing              = errors.New("no pricing configured for tap")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrPendingOrderExists     = errors.New("buyer already has a pending order")
)

// Race-lost outcomes. These are expected under concurrency, not bugs:
// the losing caller gets a clean code instead of a block or corruption.
var (
	ErrInsufficientInventory = errors.New("not enough volume left on tap")
	ErrAlreadyRedeemed       = errors.New("order already redeemed")
)

// Order and token state.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOrderOwner     = errors.New("order belongs to another buyer")
	ErrOrderNotReady     = errors.New("order is not ready to redeem")
	ErrOrderExpired      = errors.New("order expired")
	ErrOrderCancelled    = errors.New("order cancelled")
	ErrOrderRefunded     = errors.New("order refunded")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrTokenInvalid      = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMismatch     = errors.New("token does not match order")
	ErrPaymentPending    = errors.New("payment not settled yet")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrRateLimited       = errors.New("rate limited")
)

// ErrorCodes maps every engine error to a stable machine-readable code
// so callers can render distinct messaging without parsing text.
var ErrorCodes = map[error]string{
	ErrTapNotFound:            "TAP_NOT_FOUND",
	ErrTapInactive:            "TAP_INACTIVE",
	ErrTempNotOK:              "TEMP_NOT_OK",
	ErrVenueInactive:          "VENUE_INACTIVE",
	ErrMobileOrderingDisabled: "MOBILE_ORDERING_DISABLED",
	ErrBuyerNotFound:          "BUYER_NOT_FOUND",
	ErrAgeNotVerified:         "AGE_NOT_VERIFIED",
	ErrNoPricing:              "NO_PRICING",
	ErrInvalidQuantity:        "INVALID_QUANTITY",
	ErrPendingOrderExists:     "PENDING_ORDER_EXISTS",
	ErrInsufficientInventory:  "INSUFFICIENT_INVENTORY",
	ErrAlreadyRedeemed:        "ALREADY_REDEEMED",
	ErrOrderNotFound:          "ORDER_NOT_FOUND",
	ErrNotOrderOwner:          "FORBIDDEN",
	ErrOrderNotReady:          "ORDER_NOT_READY",
	ErrOrderExpired:           "ORDER_EXPIRED",
	ErrOrderCancelled:         "ORDER_CANCELLED",
	ErrOrderRefunded:          "ORDER_REFUNDED",
	ErrInvalidTransition:      "INVALID_TRANSITION",
	ErrTokenInvalid:           "TOKEN_INVALID",
	ErrTokenExpired:           "TOKEN_EXPIRED",
	ErrTokenMismatch:          "TOKEN_MISMATCH",
	ErrPaymentPending:         "PAYMENT_PENDING",
	ErrPaymentDeclined:        "PAYMENT_DECLINED",
	ErrRateLimited:            "RATE_LIMITED",
}

// Code resolves err to its machine code, unwrapping as needed.
func Code(err error) string {
	for sentinel, code := range ErrorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL_ERROR"
}
