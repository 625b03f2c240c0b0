package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pourpass-backend/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS venues (
		id TEXT PRIMARY KEY,
		name TEXT,
		active BOOLEAN,
		mobile_ordering_enabled BOOLEAN,
		created_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS taps (
		id TEXT PRIMARY KEY,
		venue_id TEXT,
		beer_id TEXT,
		status TEXT,
		oz_remaining NUMERIC(10,2),
		low_threshold_oz NUMERIC(10,2),
		temp_f NUMERIC(5,2),
		pour_size_oz NUMERIC(5,2),
		price_cents INT,
		currency TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		CHECK (oz_remaining >= 0)
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS buyers (
		id TEXT PRIMARY KEY,
		age_verified BOOLEAN,
		age_verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT,
		venue_id TEXT,
		tap_id TEXT,
		beer_id TEXT,
		quantity INT,
		pour_size_oz NUMERIC(5,2),
		unit_price_cents INT,
		total_cents INT,
		currency TEXT,
		status TEXT,
		qr_token TEXT DEFAULT '',
		qr_expires_at TIMESTAMPTZ,
		payment_intent_ref TEXT DEFAULT '',
		refund_state TEXT DEFAULT '',
		paid_at TIMESTAMPTZ,
		redeemed_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS order_events (
		id TEXT PRIMARY KEY,
		order_id TEXT,
		event_type TEXT,
		metadata JSONB,
		created_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS webhook_events (
		external_id TEXT PRIMARY KEY,
		event_type TEXT,
		processed_at TIMESTAMPTZ
	);`)
	return err
}

const tapColumns = `id, venue_id, beer_id, status, oz_remaining, low_threshold_oz, temp_f, pour_size_oz, price_cents, currency, created_at, updated_at`

func (s *PostgresStore) GetTap(ctx context.Context, id string) (*domain.Tap, error) {
	var t domain.Tap
	err := s.db.QueryRowContext(ctx, `SELECT `+tapColumns+` FROM taps WHERE id=$1`, id).
		Scan(&t.ID, &t.VenueID, &t.BeerID, (*string)(&t.Status), &t.OzRemaining,
			&t.LowThresholdOz, &t.TempF, &t.PourSizeOz, &t.PriceCents, &t.Currency,
			&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTapNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	var v domain.Venue
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, active, mobile_ordering_enabled, created_at FROM venues WHERE id=$1`, id).
		Scan(&v.ID, &v.Name, &v.Active, &v.MobileOrderingEnabled, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVenueInactive
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) GetBuyer(ctx context.Context, id string) (*domain.Buyer, error) {
	var b domain.Buyer
	var verifiedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, age_verified, age_verified_at, created_at FROM buyers WHERE id=$1`, id).
		Scan(&b.ID, &b.AgeVerified, &verifiedAt, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBuyerNotFound
	}
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		b.AgeVerifiedAt = verifiedAt.Time
	}
	return &b, nil
}

func (s *PostgresStore) PutTap(ctx context.Context, t *domain.Tap) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO taps (`+tapColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET venue_id=$2, beer_id=$3, status=$4, oz_remaining=$5,
			low_threshold_oz=$6, temp_f=$7, pour_size_oz=$8, price_cents=$9, currency=$10, updated_at=$12`,
		t.ID, t.VenueID, t.BeerID, string(t.Status), t.OzRemaining, t.LowThresholdOz,
		t.TempF, t.PourSizeOz, t.PriceCents, t.Currency, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *PostgresStore) PutVenue(ctx context.Context, v *domain.Venue) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO venues (id, name, active, mobile_ordering_enabled, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name=$2, active=$3, mobile_ordering_enabled=$4`,
		v.ID, v.Name, v.Active, v.MobileOrderingEnabled, v.CreatedAt)
	return err
}

func (s *PostgresStore) PutBuyer(ctx context.Context, b *domain.Buyer) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO buyers (id, age_verified, age_verified_at, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET age_verified=$2, age_verified_at=$3`,
		b.ID, b.AgeVerified, nullTime(b.AgeVerifiedAt), b.CreatedAt)
	return err
}

// ReserveOrder holds the buyer and tap row locks for the duration of
// the combined checks, so concurrent reservations serialize here. The
// checks re-run state that can move between the service's read and
// this write: a still-pending order from the same buyer returns
// ErrPendingOrderExists, and a zero row count on the decrement means
// another reservation won, returning ErrInsufficientInventory instead
// of a retry loop.
func (s *PostgresStore) ReserveOrder(ctx context.Context, o *domain.Order, pendingSince time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// buyer lock first, tap lock second, in every path that takes both
	var verified bool
	err = tx.QueryRowContext(ctx, `SELECT age_verified FROM buyers WHERE id=$1 FOR UPDATE`, o.BuyerID).
		Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrBuyerNotFound
	}
	if err != nil {
		return err
	}
	var pending int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders
		WHERE buyer_id=$1 AND status='pending_payment' AND created_at > $2`,
		o.BuyerID, pendingSince).Scan(&pending)
	if err != nil {
		return err
	}
	if pending > 0 {
		return domain.ErrPendingOrderExists
	}

	var status string
	var tempF float64
	err = tx.QueryRowContext(ctx, `SELECT status, temp_f FROM taps WHERE id=$1 FOR UPDATE`, o.TapID).
		Scan(&status, &tempF)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrTapNotFound
	}
	if err != nil {
		return err
	}
	if domain.TapStatus(status) != domain.TapActive {
		return domain.ErrTapInactive
	}
	probe := domain.Tap{TempF: tempF}
	if !probe.TempOK() {
		return domain.ErrTempNotOK
	}

	vol := o.ReservedOz()
	res, err := tx.ExecContext(ctx, `UPDATE taps
		SET oz_remaining = oz_remaining - $2, updated_at = now()
		WHERE id = $1 AND status = 'active' AND oz_remaining - $2 >= low_threshold_oz`,
		o.TapID, vol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInsufficientInventory
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO orders
		(id, buyer_id, venue_id, tap_id, beer_id, quantity, pour_size_oz, unit_price_cents,
		 total_cents, currency, status, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`,
		o.ID, o.BuyerID, o.VenueID, o.TapID, o.BeerID, o.Quantity, o.PourSizeOz,
		o.UnitPriceCents, o.TotalCents, o.Currency, string(o.Status), o.ExpiresAt, o.CreatedAt)
	if err != nil {
		return err
	}
	if err := appendEventTx(ctx, tx, o.ID, domain.EventCreated, map[string]any{
		"tapId":    o.TapID,
		"quantity": o.Quantity,
		"totalOz":  vol,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

const orderColumns = `id, buyer_id, venue_id, tap_id, beer_id, quantity, pour_size_oz,
	unit_price_cents, total_cents, currency, status, qr_token, qr_expires_at,
	payment_intent_ref, refund_state, paid_at, redeemed_at, completed_at,
	expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var qrExpires, paidAt, redeemedAt, completedAt sql.NullTime
	err := row.Scan(&o.ID, &o.BuyerID, &o.VenueID, &o.TapID, &o.BeerID, &o.Quantity,
		&o.PourSizeOz, &o.UnitPriceCents, &o.TotalCents, &o.Currency,
		(*string)(&o.Status), &o.QRToken, &qrExpires, &o.PaymentIntentRef,
		&o.RefundState, &paidAt, &redeemedAt, &completedAt,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if qrExpires.Valid {
		o.QRExpiresAt = qrExpires.Time
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if redeemedAt.Valid {
		o.RedeemedAt = &redeemedAt.Time
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	return &o, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
}

func (s *PostgresStore) GetOrderByIntent(ctx context.Context, intentRef string) (*domain.Order, error) {
	if intentRef == "" {
		return nil, domain.ErrOrderNotFound
	}
	return scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_ref=$1`, intentRef))
}

func (s *PostgresStore) HasRecentPendingOrder(ctx context.Context, buyerID string, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders
		WHERE buyer_id=$1 AND status='pending_payment' AND created_at > $2`,
		buyerID, since).Scan(&n)
	return n > 0, err
}

func (s *PostgresStore) SetPaymentIntent(ctx context.Context, orderID, intentRef string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `UPDATE orders SET payment_intent_ref=$2, updated_at=now()
		WHERE id=$1 AND payment_intent_ref=''`, orderID, intentRef)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// ref already stored; replaying the same ref is a no-op
		return tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventPaymentIntentCreated,
		map[string]any{"intentRef": intentRef}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) MarkPaid(ctx context.Context, orderID string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `UPDATE orders
		SET status='ready_to_redeem', paid_at=$2, updated_at=$2
		WHERE id=$1 AND status='pending_payment'`, orderID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventPaid, nil); err != nil {
		return false, err
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventReadyToRedeem, nil); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *PostgresStore) CancelOrder(ctx context.Context, orderID, reason string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	won, err := transitionAndRestore(ctx, tx, orderID,
		`UPDATE orders SET status='cancelled', updated_at=now()
		 WHERE id=$1 AND status='pending_payment'`)
	if err != nil {
		return false, err
	}
	if !won {
		return false, tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventCancelled,
		map[string]any{"reason": reason}); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *PostgresStore) SetToken(ctx context.Context, orderID, token string, expiresAt time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `UPDATE orders SET qr_token=$2, qr_expires_at=$3, updated_at=now()
		WHERE id=$1 AND status='ready_to_redeem'`, orderID, token, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventTokenIssued,
		map[string]any{"expiresAt": expiresAt}); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// RedeemOrder is the core single-use guarantee: the WHERE clause only
// matches while the order is still ready_to_redeem, so of any number of
// concurrent scans exactly one sees a row count of one.
func (s *PostgresStore) RedeemOrder(ctx context.Context, orderID string, at time.Time) (bool, error) {
	return s.conditionalTransition(ctx, orderID, domain.EventRedeemed,
		`UPDATE orders SET status='redeemed', redeemed_at=$2, updated_at=$2
		 WHERE id=$1 AND status='ready_to_redeem'`, orderID, at)
}

func (s *PostgresStore) StartPour(ctx context.Context, orderID string) (bool, error) {
	return s.conditionalTransition(ctx, orderID, domain.EventPourStarted,
		`UPDATE orders SET status='pouring', updated_at=now()
		 WHERE id=$1 AND status='redeemed'`, orderID)
}

func (s *PostgresStore) CompletePour(ctx context.Context, orderID string, at time.Time) (bool, error) {
	return s.conditionalTransition(ctx, orderID, domain.EventCompleted,
		`UPDATE orders SET status='completed', completed_at=$2, updated_at=$2
		 WHERE id=$1 AND status='pouring'`, orderID, at)
}

func (s *PostgresStore) RefundOrder(ctx context.Context, orderID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	won, err := transitionAndRestore(ctx, tx, orderID,
		`UPDATE orders SET status='refunded', refund_state='due', updated_at=now()
		 WHERE id=$1 AND status IN ('paid','ready_to_redeem')`)
	if err != nil {
		return false, err
	}
	if !won {
		return false, tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, domain.EventRefundRequested, nil); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ExpireDue uses a row-skip lock so overlapping sweep runs partition
// the due rows between them instead of double-expiring.
func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time) ([]domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status='ready_to_redeem' AND expires_at < $1
		FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return nil, err
	}
	var due []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		due = append(due, *o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range due {
		o := &due[i]
		if _, err := tx.ExecContext(ctx, `UPDATE orders
			SET status='expired', refund_state='due', updated_at=$2 WHERE id=$1`,
			o.ID, now); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE taps
			SET oz_remaining = oz_remaining + $2, updated_at=$3 WHERE id=$1`,
			o.TapID, o.ReservedOz(), now); err != nil {
			return nil, err
		}
		if err := appendEventTx(ctx, tx, o.ID, domain.EventExpired,
			map[string]any{"expiredAt": now}); err != nil {
			return nil, err
		}
		o.Status = domain.OrderExpired
		o.RefundState = domain.RefundDue
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return due, nil
}

func (s *PostgresStore) ListRefundDue(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE refund_state='due'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *o)
	}
	return due, rows.Err()
}

func (s *PostgresStore) SetRefundState(ctx context.Context, orderID, state string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET refund_state=$2, updated_at=now() WHERE id=$1`, orderID, state)
	return err
}

// InsertWebhookEvent relies on the primary key: the first insert wins,
// a duplicate key means the external event was already handled.
func (s *PostgresStore) InsertWebhookEvent(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO webhook_events (external_id, event_type, processed_at)
		VALUES ($1,$2,$3)`, ev.ExternalID, ev.EventType, ev.ProcessedAt)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, ev *domain.OrderEvent) error {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	at := ev.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO order_events (id, order_id, event_type, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5)`, id, ev.OrderID, ev.EventType, meta, at)
	return err
}

func (s *PostgresStore) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, order_id, event_type, metadata, created_at
		FROM order_events WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.OrderEvent
	for rows.Next() {
		var ev domain.OrderEvent
		var meta []byte
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.EventType, &meta, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &ev.Metadata)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// conditionalTransition runs a status-guarded update plus its event in
// one transaction, returning whether this caller won the row.
func (s *PostgresStore) conditionalTransition(ctx context.Context, orderID, eventType, query string, args ...any) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	if err := appendEventTx(ctx, tx, orderID, eventType, nil); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// transitionAndRestore applies a status-guarded update and, when it
// wins, gives the order's reserved volume back to its tap.
func transitionAndRestore(ctx context.Context, tx *sql.Tx, orderID, query string) (bool, error) {
	res, err := tx.ExecContext(ctx, query, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	_, err = tx.ExecContext(ctx, `UPDATE taps SET oz_remaining = oz_remaining +
		(SELECT quantity * pour_size_oz FROM orders WHERE id=$1), updated_at=now()
		WHERE id = (SELECT tap_id FROM orders WHERE id=$1)`, orderID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func appendEventTx(ctx context.Context, tx *sql.Tx, orderID, eventType string, meta map[string]any) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO order_events (id, order_id, event_type, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5)`, uuid.NewString(), orderID, eventType, raw, time.Now().UTC())
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
