package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/middleware"
	"github.com/zesthaus/event-booking/internal/service"
)

// AuthHandler serves the one-time code login and the signed-in customer's
// bookings.
type AuthHandler struct {
	Auth     *service.AuthService
	Bookings *service.BookingService
	Timeout  time.Duration
}

func NewAuthHandler(a *service.AuthService, b *service.BookingService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{Auth: a, Bookings: b, Timeout: timeout}
}

type sendCodeReq struct {
	Email string `json:"email"`
}

type loginReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// SendOTP handles POST /auth/send-otp.  Mail is sent before responding, so
// this uses a longer deadline than storage-only routes.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req sendCodeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, 3*h.Timeout)
	defer cancel()

	if err := h.Auth.SendCode(ctx, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent to your email"})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.OTP)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// MyBookings handles GET /auth/me/bookings for the session's email.
func (h *AuthHandler) MyBookings(c echo.Context) error {
	email, ok := middleware.Email(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": string(service.KindUnauthorized), "message": "no session"})
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.FindByPurchaserEmail(ctx, email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
