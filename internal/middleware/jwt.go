package middleware // package middleware holds the echo middleware shared by all routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the user id, username and role claims in the context.  The
// request logger is enriched with the same fields.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, _ := claims.UserID()
			c.Set(ctxUserID, id)
			c.Set(ctxUsername, claims.Username)
			c.Set(ctxRole, claims.Role)

			req := c.Request()
			log := zerolog.Ctx(req.Context()).With().Uint64("user_id", id).Str("role", claims.Role).Logger()
			c.SetRequest(req.WithContext(log.WithContext(req.Context())))
			return next(c)
		}
	}
}
