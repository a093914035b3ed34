package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/service"
)

// CouponStore is the read side of repository.CouponRepo.
type CouponStore interface {
	List(ctx context.Context, f repository.CouponFilter) ([]model.Coupon, error)
	GetByNumber(ctx context.Context, number string, batchID uint64) (*model.Coupon, error)
}

// CouponGenerator creates the lot of a batch.
type CouponGenerator interface {
	GenerateCoupons(ctx context.Context, batchID uint64, actor model.Actor) (*service.GenerateResult, error)
}

// CouponCorrector rewrites the prize of a single coupon.
type CouponCorrector interface {
	CorrectCoupon(ctx context.Context, couponID uint64, amount int64, description string, actor model.Actor) (*model.Coupon, error)
}

// CouponHandler serves the coupon endpoints.
type CouponHandler struct {
	Coupons   CouponStore
	Generator CouponGenerator
	Corrector CouponCorrector
}

func NewCouponHandler(cs CouponStore, g CouponGenerator, cc CouponCorrector) *CouponHandler {
	return &CouponHandler{Coupons: cs, Generator: g, Corrector: cc}
}

type generateReq struct {
	BatchID     uint64  `json:"batch_id"`
	GeneratedBy *uint64 `json:"generated_by"`
}

type correctReq struct {
	PrizeAmount      *int64 `json:"prize_amount"`
	PrizeDescription string `json:"prize_description"`
}

// List returns coupons filtered by batch_id, box_number, is_winner and
// generated_by.
func (h *CouponHandler) List(c echo.Context) error {
	batchID, ok1 := queryUint(c, "batch_id")
	box, ok2 := queryInt(c, "box_number")
	winner, ok3 := queryBool(c, "is_winner")
	genBy, ok4 := queryUint(c, "generated_by")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return badRequest(c, "invalid filter")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Coupons.List(ctx, repository.CouponFilter{
		BatchID:     batchID,
		BoxNumber:   box,
		IsWinner:    winner,
		GeneratedBy: genBy,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns a coupon by its number, optionally scoped by ?batch_id=.
func (h *CouponHandler) Get(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return badRequest(c, "invalid coupon number")
	}
	batchID, ok := queryUint(c, "batch_id")
	if !ok {
		return badRequest(c, "invalid batch_id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	cp, err := h.Coupons.GetByNumber(ctx, number, batchID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cp)
}

// Generate builds the coupon lot of a batch.  Admins may record another
// user as generated_by.
func (h *CouponHandler) Generate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.BatchID == 0 {
		return badRequest(c, "batch_id required")
	}
	actor := middleware.Actor(c)
	if req.GeneratedBy != nil && *req.GeneratedBy != 0 && middleware.Role(c) == model.RoleAdmin {
		actor.UserID = req.GeneratedBy
	}

	ctx, cancel := withTimeout(c, lotTimeout)
	defer cancel()
	res, err := h.Generator.GenerateCoupons(ctx, req.BatchID, actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"message":      fmt.Sprintf("Generated %d coupons for batch %d", res.TotalCoupons, res.Batch.Number),
		"totalCoupons": res.TotalCoupons,
		"batch_id":     res.Batch.ID,
		"warnings":     nonNil(res.Warnings),
	})
}

// Correct changes the prize of one coupon of a batch awaiting QC.  The
// coupon is addressed by number; ?batch_id= picks the batch when numbers
// repeat across lots.
func (h *CouponHandler) Correct(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return badRequest(c, "invalid coupon number")
	}
	batchID, ok := queryUint(c, "batch_id")
	if !ok {
		return badRequest(c, "invalid batch_id")
	}
	var req correctReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.PrizeAmount == nil || *req.PrizeAmount < 0 {
		return badRequest(c, "prize_amount must be >= 0")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	target, err := h.Coupons.GetByNumber(ctx, number, batchID)
	if err != nil {
		return respondError(c, err)
	}
	cp, err := h.Corrector.CorrectCoupon(ctx, target.ID, *req.PrizeAmount, strings.TrimSpace(req.PrizeDescription), middleware.Actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cp)
}
