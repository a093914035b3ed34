package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// registerAdmin maps user management and the prize table.  Users are
// admin only; the prize table is readable by every role.
func registerAdmin(g *echo.Group, h Handlers) {
	admin := middleware.RequireRole(model.RoleAdmin)

	users := g.Group("/users", admin)
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:username", h.Users.Get)
	users.PUT("/:username", h.Users.Update)
	users.DELETE("/:username", h.Users.Delete)

	prizes := g.Group("/prize-config")
	prizes.GET("", h.Prizes.List)
	prizes.GET("/:id", h.Prizes.Get)
	prizes.POST("", h.Prizes.Create, admin)
	prizes.PUT("/:id", h.Prizes.Update, admin)
	prizes.DELETE("/:id", h.Prizes.Delete, admin)
}
