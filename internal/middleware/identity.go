package middleware

// identity.go holds the context keys set by the auth middleware and the
// helpers other middleware use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxStaff  = "staff"
)

// UserID returns the id of the signed-in customer, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok
}

// Email returns the email of the signed-in customer, if any.
func Email(c echo.Context) (string, bool) {
	e, ok := c.Get(ctxEmail).(string)
	return e, ok && e != ""
}

// IsStaff reports whether the request passed the staff guard.
func IsStaff(c echo.Context) bool {
	v, _ := c.Get(ctxStaff).(bool)
	return v
}

// principal names the caller for rate limit keys: "staff", the user id, or
// "anon".
func principal(c echo.Context) string {
	if IsStaff(c) {
		return "staff"
	}
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
