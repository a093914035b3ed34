package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/handler"
	"github.com/iliyamo/coupon-lot-qc/internal/metrics"
	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// Handlers groups every handler the API exposes.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Prizes  *handler.PrizeConfigHandler
	Batches *handler.BatchHandler
	Coupons *handler.CouponHandler
	QC      *handler.QCHandler
	Logs    *handler.ProductionLogHandler
}

// Options carries the middlewares built from configuration.  Nil entries
// are skipped.
type Options struct {
	JWTSecret   string
	RateLimit   echo.MiddlewareFunc
	ReportCache echo.MiddlewareFunc
}

// Every authenticated role.
var anyRole = []string{model.RoleAdmin, model.RoleOperator, model.RoleQCStaff}

// RegisterRoutes registers the operational endpoints (/healthz, /metrics)
// and the whole /api surface.
func RegisterRoutes(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")
	if opt.RateLimit != nil {
		api.Use(opt.RateLimit)
	}
	registerAuth(api, h.Auth, opt.JWTSecret)

	// everything below requires a valid access token
	authed := api.Group("", middleware.JWTAuth(opt.JWTSecret), middleware.RequireRole(anyRole...))
	authed.GET("/me", h.Auth.Me)

	registerAdmin(authed, h)
	registerLot(authed, h, opt)
}

// registerAuth maps the session endpoints.  Login and refresh run without
// a token; logout accepts either a refresh token in the body or a bearer
// token, so it is mounted on both.
func registerAuth(api *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := api.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, optionalJWT(jwtSecret))
}

// optionalJWT runs JWTAuth only when an Authorization header is present.
func optionalJWT(secret string) echo.MiddlewareFunc {
	auth := middleware.JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := auth(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}
