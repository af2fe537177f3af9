package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/credential"
	"github.com/zesthaus/event-booking/internal/metrics"
	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/repository"
)

// RedemptionService admits ticket holders at the door.
type RedemptionService struct {
	store BookingStore
	lg    zerolog.Logger
	now   func() time.Time
}

func NewRedemptionService(store BookingStore, lg zerolog.Logger) *RedemptionService {
	return &RedemptionService{
		store: store,
		lg:    lg.With().Str("component", "redemption_service").Logger(),
		now:   time.Now,
	}
}

// Redeem marks a ticket as used.  scanned is either the booking id or the
// raw text read from the QR code.  Of any number of concurrent calls for the
// same booking exactly one succeeds; the others get ALREADY_USED.  Unknown
// or malformed tickets get NOT_FOUND.
func (s *RedemptionService) Redeem(ctx context.Context, scanned string) (*model.Booking, error) {
	id, err := credential.ResolveBookingID(scanned)
	if err != nil {
		metrics.RecordRedemption("not_found")
		return nil, newError(KindNotFound, "ticket not found", nil, nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		metrics.RecordRedemption("not_found")
		return nil, newError(KindNotFound, "ticket not found", nil, nil)
	}

	err = s.store.MarkRedeemed(ctx, id, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordRedemption("not_found")
		s.lg.Warn().Str("booking_id", id).Msg("unknown ticket scanned")
		return nil, newError(KindNotFound, "ticket not found", nil, nil)
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		metrics.RecordRedemption("already_used")
		s.lg.Warn().Str("booking_id", id).Msg("ticket scanned again")
		return nil, newError(KindAlreadyUsed, "ticket already used", nil, map[string]any{"booking_id": id})
	case err != nil:
		return nil, fmt.Errorf("redeem ticket: %w", err)
	}

	metrics.RecordRedemption("redeemed")
	s.lg.Info().Str("booking_id", id).Msg("ticket redeemed")
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load redeemed ticket: %w", err)
	}
	return b, nil
}
