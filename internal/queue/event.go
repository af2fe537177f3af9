// Package queue carries booking confirmations over RabbitMQ.  The API
// publishes a ConfirmationEvent after a booking is persisted and a consumer
// running in the same binary renders and sends the email.
package queue

import (
	"time"

	"github.com/zesthaus/event-booking/internal/model"
)

// ConfirmationEvent is published when a booking is persisted.  It carries
// everything the email needs, including the ticket image, so the consumer
// never reads the database.
type ConfirmationEvent struct {
	BookingID       string    `json:"booking_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ExclusiveSeats  []string  `json:"exclusive_seats"`
	TableAssignment string    `json:"table_assignment,omitempty"`
	FrontRowCount   int       `json:"front_row_count"`
	GeneralCount    int       `json:"general_count"`
	Channel         string    `json:"channel"`
	Credential      []byte    `json:"credential"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewConfirmationEvent copies the fields of b the confirmation needs.
func NewConfirmationEvent(b model.Booking) ConfirmationEvent {
	ev := ConfirmationEvent{
		BookingID:      b.ID,
		Name:           b.Purchaser.Name,
		Email:          b.Purchaser.Email,
		ExclusiveSeats: b.ExclusiveSeats,
		FrontRowCount:  b.FrontRowCount,
		GeneralCount:   b.GeneralCount,
		Channel:        string(b.Channel),
		Credential:     b.Credential,
		CreatedAt:      b.CreatedAt,
	}
	if b.TableAssignment != nil {
		ev.TableAssignment = *b.TableAssignment
	}
	return ev
}

// Booking rebuilds the subset of the booking carried by the event.
func (ev ConfirmationEvent) Booking() model.Booking {
	b := model.Booking{
		ID:             ev.BookingID,
		Purchaser:      model.Purchaser{Name: ev.Name, Email: ev.Email},
		ExclusiveSeats: ev.ExclusiveSeats,
		FrontRowCount:  ev.FrontRowCount,
		GeneralCount:   ev.GeneralCount,
		Channel:        model.Channel(ev.Channel),
		Credential:     ev.Credential,
		CreatedAt:      ev.CreatedAt,
	}
	if ev.TableAssignment != "" {
		t := ev.TableAssignment
		b.TableAssignment = &t
	}
	return b
}
