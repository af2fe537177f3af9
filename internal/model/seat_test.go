package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := map[string]SeatKind{
		"VIP-3":    SeatKindVIP,
		"1-12":     SeatKindFrontRow,
		"2-4":      SeatKindGeneral,
		"R-9":      SeatKindGeneral,
		"VIP":      SeatKindVIP,
		"frontRow": SeatKindFrontRow,
		"general":  SeatKindGeneral,
		"vip-1":    SeatKindVIP,
		"Vip-2":    SeatKindVIP,
		"vip":      SeatKindVIP,
		"r-4":      SeatKindGeneral,
		"FRONTROW": SeatKindFrontRow,
		"A1":       SeatKindUnknown,
		"":         SeatKindUnknown,
	}
	for seat, want := range cases {
		assert.Equal(t, want, KindOf(seat), "seat %q", seat)
	}
}

func TestPurchaserDisplayName(t *testing.T) {
	assert.Equal(t, "Asha", Purchaser{Name: " Asha ", Email: "a@example.com"}.DisplayName())
	assert.Equal(t, "asha.k", Purchaser{Email: "asha.k@example.com"}.DisplayName())
	assert.Equal(t, "nobody", Purchaser{Email: "nobody"}.DisplayName())
}

func TestExclusiveResources(t *testing.T) {
	table := "VIP-1"
	b := &Booking{ExclusiveSeats: []string{"1-1", "1-2"}, TableAssignment: &table}
	assert.Equal(t, []string{"1-1", "1-2", "VIP-1"}, b.ExclusiveResources())

	empty := ""
	b = &Booking{TableAssignment: &empty}
	assert.Empty(t, b.ExclusiveResources())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "guest@example.com", NormalizeEmail("  Guest@Example.COM "))
}
