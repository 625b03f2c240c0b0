package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/metrics"
)

// TokenService issues and consumes the signed, time-boxed, single-use
// redemption credential. Issued tokens bind order, tap, venue and buyer
// so a token can only open the pour it paid for.
type TokenService struct {
	Store  Store
	Secret []byte
}

// IssueToken returns the redemption token for a ready_to_redeem order.
// Idempotent: while a stored token is still live it is returned as-is,
// so re-opening the QR screen never invalidates a code a scanner might
// already be reading.
func (s *TokenService) IssueToken(ctx context.Context, buyerID, orderID string) (string, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.BuyerID != buyerID {
		return "", domain.ErrNotOrderOwner
	}
	if err := statusError(o.Status); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	if o.QRToken != "" && o.QRExpiresAt.After(now) {
		return o.QRToken, nil
	}

	expiresAt := o.ExpiresAt
	claims := jwt.MapClaims{
		"ord": o.ID,
		"tap": o.TapID,
		"ven": o.VenueID,
		"byr": o.BuyerID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", err
	}
	won, err := s.Store.SetToken(ctx, o.ID, token, expiresAt)
	if err != nil {
		return "", err
	}
	if !won {
		// the order moved while we were signing; report its new state
		cur, err := s.Store.GetOrder(ctx, o.ID)
		if err != nil {
			return "", err
		}
		return "", statusError(cur.Status)
	}
	return token, nil
}

// Verify consumes a redemption token exactly once. Check order:
// signature, the token's own expiry claim, order existence, the stored
// expiry on the row (a superseded token dies here even while its
// signature is still valid), claim-to-row cross-match, status, and
// finally the conditional redeem write. Of concurrent calls with the
// same token exactly one wins; the rest get ErrAlreadyRedeemed.
func (s *TokenService) Verify(ctx context.Context, token string) (*domain.Order, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	orderID, _ := claims["ord"].(string)
	tapID, _ := claims["tap"].(string)
	venueID, _ := claims["ven"].(string)
	buyerID, _ := claims["byr"].(string)
	if orderID == "" {
		return nil, domain.ErrTokenInvalid
	}

	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if o.QRExpiresAt.IsZero() || now.After(o.QRExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	if o.QRToken != token || o.TapID != tapID || o.VenueID != venueID || o.BuyerID != buyerID {
		return nil, domain.ErrTokenMismatch
	}
	if err := statusError(o.Status); err != nil {
		return nil, err
	}

	won, err := s.Store.RedeemOrder(ctx, o.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrAlreadyRedeemed
	}
	metrics.OrdersRedeemed.Inc()
	return s.Store.GetOrder(ctx, o.ID)
}

// StartPour flags the tap controller opening the line for a redeemed
// order.
func (s *TokenService) StartPour(ctx context.Context, orderID string) error {
	won, err := s.Store.StartPour(ctx, orderID)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidTransition
	}
	return nil
}

// CompletePour closes out the order once the metered pour finishes.
func (s *TokenService) CompletePour(ctx context.Context, orderID string) error {
	won, err := s.Store.CompletePour(ctx, orderID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidTransition
	}
	return nil
}

// statusError maps a non-redeemable status to its specific code so the
// scanner can show staff why the code is dead.
func statusError(status domain.OrderStatus) error {
	switch status {
	case domain.OrderReadyToRedeem:
		return nil
	case domain.OrderRedeemed, domain.OrderPouring, domain.OrderCompleted:
		return domain.ErrAlreadyRedeemed
	case domain.OrderExpired:
		return domain.ErrOrderExpired
	case domain.OrderCancelled:
		return domain.ErrOrderCancelled
	case domain.OrderRefunded:
		return domain.ErrOrderRefunded
	default:
		return domain.ErrOrderNotReady
	}
}
