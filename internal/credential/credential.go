// Package credential renders the scannable ticket attached to every booking.
// The QR code carries a small JSON document; door staff scan it and submit
// either the decoded text or just the booking id for redemption.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yeqown/go-qrcode"
)

// Payload is the JSON document embedded in the QR image.
type Payload struct {
	BookingID       string   `json:"bookingId"`
	ExclusiveSeats  []string `json:"frontRowSeats"`
	FrontRowCount   int      `json:"frontRowCount"`
	GeneralCount    int      `json:"generalCount"`
	TableAssignment string   `json:"vipTable,omitempty"`
	Name            string   `json:"name"`
}

// Encoder turns a payload into image bytes.
type Encoder interface {
	Encode(p Payload) ([]byte, error)
}

// ErrEmptyBookingID is returned when a payload without id is encoded or
// parsed.
var ErrEmptyBookingID = errors.New("credential: booking id is required")

// QREncoder renders PNG QR codes.
type QREncoder struct {
	// Width is the pixel width of one QR module; 0 uses the library default.
	Width uint8
}

// NewQREncoder returns a QREncoder with the given module width.
func NewQREncoder(width uint8) *QREncoder { return &QREncoder{Width: width} }

// Encode renders p as a PNG.
func (e *QREncoder) Encode(p Payload) ([]byte, error) {
	text, err := Marshal(p)
	if err != nil {
		return nil, err
	}
	opts := []qrcode.ImageOption{qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT)}
	if e.Width > 0 {
		opts = append(opts, qrcode.WithQRWidth(e.Width))
	}
	qrc, err := qrcode.New(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("credential: build qr: %w", err)
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("credential: render qr: %w", err)
	}
	return buf.Bytes(), nil
}

// Marshal returns the canonical text form of p.  A nil seat list is
// written as [] so that scanners always see an array.
func Marshal(p Payload) (string, error) {
	if strings.TrimSpace(p.BookingID) == "" {
		return "", ErrEmptyBookingID
	}
	if p.ExclusiveSeats == nil {
		p.ExclusiveSeats = []string{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Parse decodes the text read from a scanned QR code.
func Parse(text string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return Payload{}, fmt.Errorf("credential: malformed payload: %w", err)
	}
	if strings.TrimSpace(p.BookingID) == "" {
		return Payload{}, ErrEmptyBookingID
	}
	return p, nil
}

// ResolveBookingID accepts what door staff submit (a bare booking id or
// the raw scanned payload) and returns the booking id.
func ResolveBookingID(scanned string) (string, error) {
	s := strings.TrimSpace(scanned)
	if strings.HasPrefix(s, "{") {
		p, err := Parse(s)
		if err != nil {
			return "", err
		}
		return p.BookingID, nil
	}
	if s == "" {
		return "", ErrEmptyBookingID
	}
	return s, nil
}
