package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/handler"
	"github.com/zesthaus/event-booking/internal/middleware"
)

// RegisterAuth registers the one-time code login.  Code requests are rate
// limited since each one sends mail, and login attempts by their own bucket
// to slow down code guessing; /auth/me routes need a session token.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, sendLimit, loginLimit echo.MiddlewareFunc, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/send-otp", h.SendOTP, sendLimit)
	g.POST("/login", h.Login, loginLimit)

	me := g.Group("/me", middleware.JWTAuth(jwtSecret))
	me.GET("/bookings", h.MyBookings)
}
