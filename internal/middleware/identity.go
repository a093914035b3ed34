package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// UserID returns the authenticated user's id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Username returns the authenticated user's username or "".
func Username(c echo.Context) string {
	s, _ := c.Get(ctxUsername).(string)
	return s
}

// Role returns the authenticated user's role or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// Actor describes the caller for audit columns.
func Actor(c echo.Context) model.Actor {
	a := model.Actor{Name: Username(c)}
	if id, ok := UserID(c); ok {
		a.UserID = &id
	}
	return a
}

// rateUser is the user part of a rate limit key.
func rateUser(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
