package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AccessGuard gates the staff endpoints behind one shared token.
type AccessGuard struct {
	token []byte
}

// NewAccessGuard returns a guard for token.  An empty token denies every
// request.
func NewAccessGuard(token string) *AccessGuard {
	return &AccessGuard{token: []byte(token)}
}

// Authorize reports whether cred matches the configured token.  A leading
// "Bearer " is stripped.
func (g *AccessGuard) Authorize(cred string) bool {
	cred = strings.TrimSpace(cred)
	if len(cred) > 7 && strings.EqualFold(cred[:7], "bearer ") {
		cred = strings.TrimSpace(cred[7:])
	}
	if len(g.token) == 0 || cred == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cred), g.token) == 1
}

// Middleware rejects requests whose Authorization header does not carry the
// staff token.
func (g *AccessGuard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Authorize(c.Request().Header.Get(echo.HeaderAuthorization)) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "UNAUTHORIZED",
					"message": "staff credential required",
				})
			}
			c.Set(ctxStaff, true)
			return next(c)
		}
	}
}
