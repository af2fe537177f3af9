package model

import "strings"

// SeatKind classifies a seat identifier by its prefix.  The venue labels
// VIP tables "VIP-<n>", the front row "1-<n>" and general rows "2-<n>" or
// "R-<n>".  The bare kind names are accepted as well because the box
// office form submits them for unnumbered places.
type SeatKind string

const (
	SeatKindVIP      SeatKind = "VIP"
	SeatKindFrontRow SeatKind = "frontRow"
	SeatKindGeneral  SeatKind = "general"
	SeatKindUnknown  SeatKind = ""
)

// KindOf returns the SeatKind for a seat identifier.  Letters are matched
// without regard to case, so "vip-1" is a VIP seat.
func KindOf(seat string) SeatKind {
	s := strings.ToUpper(strings.TrimSpace(seat))
	switch {
	case strings.HasPrefix(s, "VIP-"):
		return SeatKindVIP
	case strings.HasPrefix(s, "1-"):
		return SeatKindFrontRow
	case strings.HasPrefix(s, "2-"), strings.HasPrefix(s, "R-"):
		return SeatKindGeneral
	}
	for _, k := range []SeatKind{SeatKindVIP, SeatKindFrontRow, SeatKindGeneral} {
		if strings.EqualFold(seat, string(k)) {
			return k
		}
	}
	return SeatKindUnknown
}

// ClaimKind tells a seat claim from a table claim in the seat_claims table.
type ClaimKind string

const (
	ClaimSeat  ClaimKind = "SEAT"
	ClaimTable ClaimKind = "TABLE"
)
