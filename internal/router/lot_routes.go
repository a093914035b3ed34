package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// registerLot maps batches, coupons, QC validations and production logs.
// Reads are open to every role.  Operators run production; QC staff run
// audits; corrections and deletes are admin only.
func registerLot(g *echo.Group, h Handlers, opt Options) {
	admin := middleware.RequireRole(model.RoleAdmin)
	production := middleware.RequireRole(model.RoleAdmin, model.RoleOperator)
	qc := middleware.RequireRole(model.RoleAdmin, model.RoleQCStaff)

	reportMW := []echo.MiddlewareFunc{}
	if opt.ReportCache != nil {
		reportMW = append(reportMW, opt.ReportCache)
	}

	b := g.Group("/batches")
	b.GET("", h.Batches.List)
	b.POST("", h.Batches.Create, production)
	b.GET("/:number", h.Batches.Get)
	b.PUT("/:number", h.Batches.Update, production)
	b.DELETE("/:number", h.Batches.Delete, admin)
	b.GET("/:number/detail", h.Batches.Detail)
	b.GET("/:number/report", h.Batches.Report, reportMW...)
	b.GET("/:number/report.csv", h.Batches.ReportCSV, reportMW...)

	c := g.Group("/coupons")
	c.GET("", h.Coupons.List)
	c.POST("/generate", h.Coupons.Generate, production)
	c.GET("/:number", h.Coupons.Get)
	c.PUT("/:number", h.Coupons.Correct, admin)

	v := g.Group("/qc-validations")
	v.GET("", h.QC.List)
	v.GET("/:id", h.QC.Get)
	v.GET("/batch/:id", h.QC.ByBatch)
	v.POST("/batch/:id/run", h.QC.Run, qc)

	l := g.Group("/production-logs")
	l.GET("", h.Logs.List)
	l.GET("/:id", h.Logs.Get)
	l.GET("/batch/:id", h.Logs.ByBatch)
	l.POST("", h.Logs.Create, production)
}
