package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/service"
)

// QCStore is the read side of repository.QCValidationRepo.
type QCStore interface {
	List(ctx context.Context, f repository.QCFilter) ([]model.QCValidation, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]model.QCValidation, error)
	GetByID(ctx context.Context, id uint64) (*model.QCValidation, error)
}

// QCRunner runs the three audits on a batch.
type QCRunner interface {
	RunQC(ctx context.Context, batchID uint64, actor model.Actor) (*service.QCResult, error)
}

// QCHandler serves the QC validation endpoints.
type QCHandler struct {
	Validations QCStore
	Runner      QCRunner
}

func NewQCHandler(v QCStore, r QCRunner) *QCHandler {
	return &QCHandler{Validations: v, Runner: r}
}

// List returns QC records filtered by batch_id, validation_status and
// validated_by, newest first.
func (h *QCHandler) List(c echo.Context) error {
	batchID, ok := queryUint(c, "batch_id")
	if !ok {
		return badRequest(c, "invalid batch_id")
	}
	status := c.QueryParam("validation_status")
	switch lot.ValidationStatus(status) {
	case "", lot.ValidationPass, lot.ValidationFail:
	default:
		return badRequest(c, "validation_status must be pass or fail")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Validations.List(ctx, repository.QCFilter{
		BatchID:          batchID,
		ValidationStatus: status,
		ValidatedBy:      c.QueryParam("validated_by"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns one QC record.
func (h *QCHandler) Get(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	v, err := h.Validations.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// ByBatch returns every QC record of a batch.
func (h *QCHandler) ByBatch(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Validations.ListByBatch(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Run audits the stored lot of a batch and records the result.
func (h *QCHandler) Run(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	ctx, cancel := withTimeout(c, lotTimeout)
	defer cancel()
	res, err := h.Runner.RunQC(ctx, id, middleware.Actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"status":      res.Status,
		"validations": res.Validations,
	})
}
