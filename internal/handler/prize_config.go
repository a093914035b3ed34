package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// PrizeStore is the part of repository.PrizeConfigRepo the handlers use.
type PrizeStore interface {
	List(ctx context.Context) ([]model.PrizeConfig, error)
	GetByID(ctx context.Context, id uint64) (*model.PrizeConfig, error)
	Create(ctx context.Context, p *model.PrizeConfig) error
	Update(ctx context.Context, p *model.PrizeConfig) error
	Delete(ctx context.Context, id uint64) error
}

// PrizeConfigHandler serves the prize table endpoints.
type PrizeConfigHandler struct {
	Prizes PrizeStore
}

func NewPrizeConfigHandler(p PrizeStore) *PrizeConfigHandler {
	return &PrizeConfigHandler{Prizes: p}
}

type prizeReq struct {
	PrizeAmount   *int64 `json:"prize_amount"`
	TotalCoupons  *int   `json:"total_coupons"`
	CouponsPerBox *int   `json:"coupons_per_box"`
	Description   string `json:"prize_description"`
	IsActive      *bool  `json:"is_active"`
}

// apply copies the set fields of req onto p and checks the row-level
// rules.  Lot-wide consistency is checked again at generation time.
func (req prizeReq) apply(p *model.PrizeConfig) string {
	if req.PrizeAmount != nil {
		p.PrizeAmount = *req.PrizeAmount
	}
	if req.TotalCoupons != nil {
		p.TotalCoupons = *req.TotalCoupons
	}
	if req.CouponsPerBox != nil {
		p.CouponsPerBox = *req.CouponsPerBox
	}
	if s := strings.TrimSpace(req.Description); s != "" {
		p.Description = s
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	switch {
	case p.PrizeAmount < 0:
		return "prize_amount must be >= 0"
	case p.TotalCoupons <= 0:
		return "total_coupons must be > 0"
	case p.CouponsPerBox <= 0:
		return "coupons_per_box must be > 0"
	}
	return ""
}

// List returns every prize config, active or not.
func (h *PrizeConfigHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Prizes.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns one prize config by id.
func (h *PrizeConfigHandler) Get(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	p, err := h.Prizes.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Create adds a prize config.  New rows are active unless is_active=false.
func (h *PrizeConfigHandler) Create(c echo.Context) error {
	var req prizeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.PrizeAmount == nil || req.TotalCoupons == nil {
		return badRequest(c, "prize_amount and total_coupons required")
	}
	p := &model.PrizeConfig{IsActive: true, CouponsPerBox: 1000}
	if msg := req.apply(p); msg != "" {
		return badRequest(c, msg)
	}
	if uid, ok := middleware.UserID(c); ok {
		p.CreatedBy = &uid
		p.UpdatedBy = &uid
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Prizes.Create(ctx, p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update changes the set fields of a prize config.
func (h *PrizeConfigHandler) Update(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req prizeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	p, err := h.Prizes.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if msg := req.apply(p); msg != "" {
		return badRequest(c, msg)
	}
	if uid, ok := middleware.UserID(c); ok {
		p.UpdatedBy = &uid
	}
	if err := h.Prizes.Update(ctx, p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a prize config.
func (h *PrizeConfigHandler) Delete(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Prizes.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "prize config deleted"})
}
