package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zesthaus/event-booking/internal/model"
)

// BookingRepo stores bookings and the seat claims that make their seats and
// tables exclusive.  A booking and its claims are always written in one
// transaction; the primary key on seat_claims.resource_id and the unique key
// on bookings.payment_ref are the final word on conflicts.  All timestamps
// are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// Claim is one row of seat_claims.
type Claim struct {
	ResourceID string
	BookingID  string
	Kind       model.ClaimKind
}

const bookingColumns = `id, purchaser_name, purchaser_email, price, payment_ref, exclusive_seats,
	table_assignment, front_row_count, general_count, channel, credential,
	redeemed, redeemed_at, created_at`

// Create persists b together with one claim per exclusive resource.  The ID,
// credential and channel must already be set.  CreatedAt is filled in when
// zero.
//
// A unique violation on the payment reference yields ErrDuplicatePayment; a
// primary key violation (or lock contention) on a claim yields ErrSeatTaken.
// Either way nothing is written.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	seats := b.ExclusiveSeats
	if seats == nil {
		seats = []string{}
	}
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings (id, purchaser_name, purchaser_email, price, payment_ref, exclusive_seats,
		table_assignment, front_row_count, general_count, channel, credential, redeemed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.Purchaser.Name, b.Purchaser.Email, b.Price, nullString(b.PaymentRef), string(seatsJSON),
		nullString(b.TableAssignment), b.FrontRowCount, b.GeneralCount, string(b.Channel), b.Credential,
		b.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) && b.PaymentRef != nil {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := r.createClaimsTx(ctx, tx, claimsFor(b), b.CreatedAt); err != nil {
		if isDuplicateKey(err) || isLockContention(err) {
			return ErrSeatTaken
		}
		return fmt.Errorf("insert seat claims: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isLockContention(err) {
			return ErrSeatTaken
		}
		return err
	}
	committed = true
	return nil
}

// claimsFor lists the claims a booking holds, sorted by resource id so that
// concurrent inserts lock rows in the same order.
func claimsFor(b *model.Booking) []Claim {
	out := make([]Claim, 0, len(b.ExclusiveSeats)+1)
	for _, s := range b.ExclusiveSeats {
		out = append(out, Claim{ResourceID: s, BookingID: b.ID, Kind: model.ClaimSeat})
	}
	if b.TableAssignment != nil && *b.TableAssignment != "" {
		out = append(out, Claim{ResourceID: *b.TableAssignment, BookingID: b.ID, Kind: model.ClaimTable})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}

// createClaimsTx inserts multiple seat_claims rows in a single statement.
// Passing an empty slice has no effect and returns nil.
func (r *BookingRepo) createClaimsTx(ctx context.Context, tx *sql.Tx, claims []Claim, at time.Time) error {
	if len(claims) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO seat_claims (resource_id, booking_id, kind, created_at) VALUES `)
	args := make([]interface{}, 0, len(claims)*4)
	for i, c := range claims {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, c.ResourceID, c.BookingID, string(c.Kind), at)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetByID returns the booking with the given id or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanOne(row)
}

// GetByPaymentRef returns the booking carrying the given payment reference
// or ErrNotFound.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_ref = ?`, ref)
	return scanOne(row)
}

// List returns every booking, newest first.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// ListByEmail returns the bookings of one purchaser, newest first.  The
// email must already be normalized.
func (r *BookingRepo) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE purchaser_email = ? ORDER BY created_at DESC, id`, email)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// Claimed returns the subset of ids that are currently claimed by any
// booking.  The order of the result is unspecified.
func (r *BookingRepo) Claimed(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT resource_id FROM seat_claims WHERE resource_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListClaims returns every claim ordered by resource id.
func (r *BookingRepo) ListClaims(ctx context.Context) ([]Claim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT resource_id, booking_id, kind FROM seat_claims ORDER BY resource_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Claim
	for rows.Next() {
		var c Claim
		var kind string
		if err := rows.Scan(&c.ResourceID, &c.BookingID, &kind); err != nil {
			return nil, err
		}
		c.Kind = model.ClaimKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkRedeemed flips the redeemed flag of an unredeemed booking.  The update
// is conditional, so of any number of concurrent callers exactly one
// succeeds; the others get ErrAlreadyRedeemed.  Unknown ids yield
// ErrNotFound.
func (r *BookingRepo) MarkRedeemed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET redeemed = 1, redeemed_at = ? WHERE id = ? AND redeemed = 0`, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var redeemed bool
	err = r.db.QueryRowContext(ctx, `SELECT redeemed FROM bookings WHERE id = ?`, id).Scan(&redeemed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyRedeemed
}

// Delete removes a booking and releases its claims in one transaction.  It
// reports whether the deleted booking had already been redeemed.  Unknown
// ids yield ErrNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id string) (wasRedeemed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `SELECT redeemed FROM bookings WHERE id = ? FOR UPDATE`, id).Scan(&wasRedeemed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_claims WHERE booking_id = ?`, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return wasRedeemed, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(row *sql.Row) (*model.Booking, error) {
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanAll(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (*model.Booking, error) {
	var (
		b          model.Booking
		paymentRef sql.NullString
		seatsJSON  []byte
		table      sql.NullString
		channel    string
		redeemedAt sql.NullTime
	)
	err := s.Scan(
		&b.ID, &b.Purchaser.Name, &b.Purchaser.Email, &b.Price, &paymentRef, &seatsJSON,
		&table, &b.FrontRowCount, &b.GeneralCount, &channel, &b.Credential,
		&b.Redeemed, &redeemedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		pr := paymentRef.String
		b.PaymentRef = &pr
	}
	if table.Valid {
		t := table.String
		b.TableAssignment = &t
	}
	if redeemedAt.Valid {
		at := redeemedAt.Time.UTC()
		b.RedeemedAt = &at
	}
	b.Channel = model.Channel(channel)
	b.ExclusiveSeats = []string{}
	if len(seatsJSON) > 0 {
		if err := json.Unmarshal(seatsJSON, &b.ExclusiveSeats); err != nil {
			return nil, fmt.Errorf("decode exclusive_seats of %s: %w", b.ID, err)
		}
	}
	return &b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
