package middleware

import "github.com/labstack/echo/v4"

const (
	userKey = "user_id"
	roleKey = "role"
)

// UserID returns the authenticated subject, or "" on public routes.
func UserID(c echo.Context) string {
	s, _ := c.Get(userKey).(string)
	return s
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(roleKey).(string)
	return s
}

// IsStaff reports whether the caller may act on bookings they do not own.
func IsStaff(c echo.Context) bool {
	r := Role(c)
	return r == RoleOperator || r == RoleAdmin
}

// rateIdentity keys the rate limiter; unauthenticated callers share "anon".
func rateIdentity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
