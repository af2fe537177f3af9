// Package service holds the booking, redemption and login workflows.  Each
// service reaches storage through a small interface defined here.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/credential"
	"github.com/zesthaus/event-booking/internal/metrics"
	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/repository"
)

// BookingStore is the persistence the booking workflows need.
// *repository.BookingRepo satisfies it.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByPaymentRef(ctx context.Context, ref string) (*model.Booking, error)
	List(ctx context.Context) ([]model.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	Claimed(ctx context.Context, ids []string) ([]string, error)
	ListClaims(ctx context.Context) ([]repository.Claim, error)
	MarkRedeemed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (wasRedeemed bool, err error)
}

// Dispatcher hands a persisted booking to the confirmation pipeline.  It
// must not block on delivery and has no way to fail the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, b model.Booking)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CreateBookingInput is a booking request after transport decoding.
type CreateBookingInput struct {
	Name            string   `json:"name" validate:"max=255"`
	Email           string   `json:"email" validate:"required,email,max=255"`
	Price           float64  `json:"price" validate:"gte=0,lte=9999999999.99"`
	PaymentRef      string   `json:"payment_ref" validate:"max=191"`
	ExclusiveSeats  []string `json:"exclusive_seats" validate:"max=100,dive,required,max=64"`
	FrontRowCount   int      `json:"front_row_count" validate:"gte=0"`
	GeneralCount    int      `json:"general_count" validate:"gte=0"`
	TableAssignment string   `json:"table_assignment" validate:"max=64"`
}

// normalize trims every string, lower-cases the email and collapses
// repeated seats keeping the first occurrence.
func (in *CreateBookingInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = model.NormalizeEmail(in.Email)
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	in.TableAssignment = strings.TrimSpace(in.TableAssignment)
	seen := make(map[string]struct{}, len(in.ExclusiveSeats))
	seats := make([]string, 0, len(in.ExclusiveSeats))
	for _, s := range in.ExclusiveSeats {
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		seats = append(seats, s)
	}
	in.ExclusiveSeats = seats
}

// validationError converts validator output into a VALIDATION_ERROR with
// one entry per offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(KindValidation, "invalid request", err, nil)
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return newError(KindValidation, "invalid request", nil, map[string]any{"fields": fields})
}

// SeatChecker answers whether seats and tables are free.  It reads claims
// only; the write path relies on storage constraints, so a positive answer
// is advisory.
type SeatChecker struct {
	store BookingStore
}

func NewSeatChecker(store BookingStore) *SeatChecker { return &SeatChecker{store: store} }

// Unavailable returns the members of ids that are already claimed, in the
// order they were given.
func (c *SeatChecker) Unavailable(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	claimed, err := c.store.Claimed(ctx, ids)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(claimed))
	for _, id := range claimed {
		taken[id] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := taken[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// IsAvailable reports true when ids is empty or none of ids is claimed.
func (c *SeatChecker) IsAvailable(ctx context.Context, ids []string) (bool, error) {
	taken, err := c.Unavailable(ctx, ids)
	if err != nil {
		return false, err
	}
	return len(taken) == 0, nil
}

// BookingService creates, lists and deletes bookings.
type BookingService struct {
	store      BookingStore
	seats      *SeatChecker
	encoder    credential.Encoder
	dispatcher Dispatcher
	lg         zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewBookingService(store BookingStore, enc credential.Encoder, d Dispatcher, lg zerolog.Logger) *BookingService {
	return &BookingService{
		store:      store,
		seats:      NewSeatChecker(store),
		encoder:    enc,
		dispatcher: d,
		lg:         lg.With().Str("component", "booking_service").Logger(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// Create validates and persists a booking for the given channel, renders its
// ticket and queues the confirmation email.
//
// Errors: VALIDATION_ERROR for malformed input, POLICY_VIOLATION when a
// public request asks for a VIP table or VIP seat, CONFLICT when a seat or
// table is taken or the payment reference was already used, and
// DEPENDENCY_FAILURE when the ticket cannot be rendered.  Nothing is stored
// on any error.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput, channel model.Channel) (*model.Booking, error) {
	b, err := s.create(ctx, in, channel)
	if err != nil {
		metrics.RecordBookingRejected(string(channel), rejectReason(err))
		return nil, err
	}
	metrics.RecordBookingCreated(string(channel))
	return b, nil
}

func (s *BookingService) create(ctx context.Context, in CreateBookingInput, channel model.Channel) (*model.Booking, error) {
	if !channel.Valid() {
		return nil, newError(KindValidation, "unknown booking channel", nil, nil)
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.TableAssignment != "" {
		for _, seat := range in.ExclusiveSeats {
			if seat == in.TableAssignment {
				return nil, newError(KindValidation, "table also listed as a seat", nil,
					map[string]any{"table_assignment": in.TableAssignment})
			}
		}
	}

	if channel == model.ChannelPublic {
		if in.TableAssignment != "" {
			return nil, newError(KindPolicy, "VIP tables can only be booked by staff", nil, nil)
		}
		for _, seat := range in.ExclusiveSeats {
			if model.KindOf(seat) == model.SeatKindVIP {
				return nil, newError(KindPolicy, "VIP seats can only be booked by staff", nil,
					map[string]any{"seat": seat})
			}
		}
	}

	resources := append([]string{}, in.ExclusiveSeats...)
	if in.TableAssignment != "" {
		resources = append(resources, in.TableAssignment)
	}
	taken, err := s.seats.Unavailable(ctx, resources)
	if err != nil {
		return nil, fmt.Errorf("check seats: %w", err)
	}
	if len(taken) > 0 {
		return nil, seatConflict(taken)
	}

	if in.PaymentRef != "" {
		_, err := s.store.GetByPaymentRef(ctx, in.PaymentRef)
		switch {
		case err == nil:
			return nil, paymentConflict(in.PaymentRef)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("check payment reference: %w", err)
		}
	}

	b := &model.Booking{
		ID:             s.newID(),
		Purchaser:      model.Purchaser{Name: in.Name, Email: in.Email},
		Price:          in.Price,
		ExclusiveSeats: in.ExclusiveSeats,
		FrontRowCount:  in.FrontRowCount,
		GeneralCount:   in.GeneralCount,
		Channel:        channel,
		CreatedAt:      s.now().UTC(),
	}
	if in.PaymentRef != "" {
		ref := in.PaymentRef
		b.PaymentRef = &ref
	}
	if in.TableAssignment != "" {
		table := in.TableAssignment
		b.TableAssignment = &table
	}

	img, err := s.encoder.Encode(credential.Payload{
		BookingID:       b.ID,
		ExclusiveSeats:  b.ExclusiveSeats,
		FrontRowCount:   b.FrontRowCount,
		GeneralCount:    b.GeneralCount,
		TableAssignment: in.TableAssignment,
		Name:            b.Purchaser.Name,
	})
	if err != nil {
		return nil, newError(KindDependency, "could not generate ticket", err, nil)
	}
	b.Credential = img

	if err := s.store.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatTaken):
			// lost the race after the pre-check; report what is taken now
			now, lookupErr := s.seats.Unavailable(ctx, resources)
			if lookupErr != nil || len(now) == 0 {
				now = resources
			}
			return nil, seatConflict(now)
		case errors.Is(err, repository.ErrDuplicatePayment):
			return nil, paymentConflict(in.PaymentRef)
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	s.lg.Info().
		Str("booking_id", b.ID).
		Str("channel", string(channel)).
		Strs("seats", b.ExclusiveSeats).
		Int("general", b.GeneralCount).
		Msg("booking created")

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, *b)
	}
	return b, nil
}

func seatConflict(taken []string) error {
	return newError(KindConflict, "one or more seats are already booked", repository.ErrSeatTaken,
		map[string]any{"reason": "seat_taken", "unavailable": taken})
}

func paymentConflict(ref string) error {
	return newError(KindConflict, "a booking with this payment reference already exists", repository.ErrDuplicatePayment,
		map[string]any{"reason": "duplicate_payment", "payment_ref": ref})
}

func rejectReason(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal"
	}
	if r, ok := e.Details["reason"].(string); ok {
		return r
	}
	return strings.ToLower(string(e.Kind))
}

// List returns every booking, newest first.
func (s *BookingService) List(ctx context.Context) ([]model.Booking, error) {
	return s.store.List(ctx)
}

// FindByPurchaserEmail returns the bookings of one purchaser, newest first.
func (s *BookingService) FindByPurchaserEmail(ctx context.Context, email string) ([]model.Booking, error) {
	email = model.NormalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, newError(KindValidation, "a valid email is required", nil, nil)
	}
	return s.store.ListByEmail(ctx, email)
}

// Delete removes a booking and frees its seats and table.  Redeemed
// bookings may be deleted too; that is logged as a warning.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return newError(KindNotFound, "booking not found", nil, nil)
	}
	wasRedeemed, err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, "booking not found", nil, nil)
	}
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	ev := s.lg.Info()
	if wasRedeemed {
		ev = s.lg.Warn()
	}
	ev.Str("booking_id", id).Bool("was_redeemed", wasRedeemed).Msg("booking deleted")
	return nil
}

// ListClaimed returns every claimed seat and table, each list sorted.
func (s *BookingService) ListClaimed(ctx context.Context) (model.ClaimedResources, error) {
	claims, err := s.store.ListClaims(ctx)
	if err != nil {
		return model.ClaimedResources{}, err
	}
	out := model.ClaimedResources{Seats: []string{}, Tables: []string{}}
	for _, c := range claims {
		if c.Kind == model.ClaimTable {
			out.Tables = append(out.Tables, c.ResourceID)
			continue
		}
		out.Seats = append(out.Seats, c.ResourceID)
	}
	sort.Strings(out.Seats)
	sort.Strings(out.Tables)
	return out, nil
}
