package model

import (
	"strings"
	"time"
)

// Channel identifies the trust context a booking request came from.  Only
// the ADMIN channel may attach a VIP table to a booking.
type Channel string

const (
	ChannelPublic Channel = "PUBLIC" // self-service booking page
	ChannelAdmin  Channel = "ADMIN"  // offline/box-office booking by staff
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c == ChannelPublic || c == ChannelAdmin
}

// Purchaser is the contact attached to a booking.  Email is the
// customer-facing identity key and is stored normalized.
type Purchaser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the purchaser's name, falling back to the local part
// of the email address when no name was given.
func (p Purchaser) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	if i := strings.Index(p.Email, "@"); i > 0 {
		return p.Email[:i]
	}
	return p.Email
}

// NormalizeEmail trims and lower-cases an email address.  Every value that
// reaches the bookings or users tables goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Booking is a persisted ticket purchase for the event.
//
// Fields:
//
//	ID              – UUID assigned before the record is written.
//	Purchaser       – name and email of the buyer.
//	Price           – amount charged, never negative, at most 9999999999.99.
//	PaymentRef      – external payment identifier, unique when present.
//	ExclusiveSeats  – seats claimed exclusively by this booking, in request order.
//	TableAssignment – VIP table label, admin channel only.
//	FrontRowCount   – number of front-row places as entered by the client.
//	GeneralCount    – general admission places (uncapped).
//	Credential      – PNG QR image rendered once at creation.
//	Redeemed        – true after the ticket was scanned at the door.
//	RedeemedAt      – when it was scanned.
//	Channel         – PUBLIC or ADMIN.
//	CreatedAt       – persistence timestamp (UTC).
type Booking struct {
	ID              string     `json:"id"`
	Purchaser       Purchaser  `json:"purchaser"`
	Price           float64    `json:"price"`
	PaymentRef      *string    `json:"payment_ref,omitempty"`
	ExclusiveSeats  []string   `json:"exclusive_seats"`
	TableAssignment *string    `json:"table_assignment,omitempty"`
	FrontRowCount   int        `json:"front_row_count"`
	GeneralCount    int        `json:"general_count"`
	Credential      []byte     `json:"credential"`
	Redeemed        bool       `json:"redeemed"`
	RedeemedAt      *time.Time `json:"redeemed_at,omitempty"`
	Channel         Channel    `json:"channel"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ExclusiveResources returns every identifier this booking holds
// exclusively: its seats followed by its table, if any.
func (b *Booking) ExclusiveResources() []string {
	out := make([]string, 0, len(b.ExclusiveSeats)+1)
	out = append(out, b.ExclusiveSeats...)
	if b.TableAssignment != nil && *b.TableAssignment != "" {
		out = append(out, *b.TableAssignment)
	}
	return out
}

// ClaimedResources groups the exclusive identifiers currently attached to
// bookings.  Seats and Tables are sorted.
type ClaimedResources struct {
	Seats  []string `json:"booked_seats"`
	Tables []string `json:"booked_tables"`
}
