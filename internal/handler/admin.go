package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/service"
)

// AdminHandler serves the staff endpoints.  Routes are expected to sit
// behind the access guard.
type AdminHandler struct {
	Bookings   *service.BookingService
	Redemption *service.RedemptionService
	Timeout    time.Duration
}

func NewAdminHandler(b *service.BookingService, r *service.RedemptionService, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Bookings: b, Redemption: r, Timeout: timeout}
}

// OfflineBooking handles POST /admin/offline-booking.  Staff may assign a
// VIP table or VIP seats.
func (h *AdminHandler) OfflineBooking(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, req.input(), model.ChannelAdmin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Offline booking added",
		"booking": b,
	})
}

// List handles GET /admin/bookings.
func (h *AdminHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type verifyReq struct {
	BookingID string `json:"bookingId"`
	Code      string `json:"code"` // raw text read from the QR code
}

// VerifyTicket handles POST /admin/verify-ticket.
func (h *AdminHandler) VerifyTicket(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	scanned := strings.TrimSpace(req.BookingID)
	if scanned == "" {
		scanned = req.Code
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Redemption.Redeem(ctx, scanned)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Ticket is valid! Marked as used.",
		"booking": b,
	})
}

// Delete handles DELETE /admin/bookings/:id.
func (h *AdminHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Bookings.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted"})
}
