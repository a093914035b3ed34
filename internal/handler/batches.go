package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/report"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
)

// BatchStore is the part of repository.BatchRepo the handlers use.
type BatchStore interface {
	Create(ctx context.Context, b *model.Batch) error
	GetByNumber(ctx context.Context, number uint64) (*model.Batch, error)
	List(ctx context.Context, f repository.BatchFilter) ([]model.Batch, error)
	Update(ctx context.Context, b *model.Batch) error
	Delete(ctx context.Context, number uint64) error
}

// DetailLoader loads a batch with its coupons, QC history and logs.
type DetailLoader interface {
	Detail(ctx context.Context, number uint64) (*model.BatchDetail, error)
}

// ReportBuilder builds the production listing of a batch.
type ReportBuilder interface {
	ProductionReport(ctx context.Context, number uint64) (*report.ProductionReport, error)
}

// BatchHandler serves the batch endpoints.
type BatchHandler struct {
	Batches  BatchStore
	Details  DetailLoader
	Reports  ReportBuilder
	Settings lot.Settings
}

func NewBatchHandler(b BatchStore, d DetailLoader, r ReportBuilder, s lot.Settings) *BatchHandler {
	return &BatchHandler{Batches: b, Details: d, Reports: r, Settings: s}
}

type batchReq struct {
	BatchNumber    uint64  `json:"batch_number"`
	OperatorName   string  `json:"operator_name"`
	Location       string  `json:"location"`
	ProductionDate string  `json:"production_date"`
	TotalBoxes     int     `json:"total_boxes"`
	OperatorID     *uint64 `json:"operator_id"`
}

// parseProductionDate accepts RFC 3339 or a plain date.
func parseProductionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// maxBoxes is the largest total_boxes that fits the lot limit at the
// default box size.  Generation re-checks against the active prize table.
func (h *BatchHandler) maxBoxes() int {
	def := lot.DefaultSettings()
	perBox, limit := h.Settings.DefaultCouponsPerBox, h.Settings.MaxLotSize
	if perBox <= 0 {
		perBox = def.DefaultCouponsPerBox
	}
	if limit <= 0 {
		limit = def.MaxLotSize
	}
	return limit / perBox
}

func batchNumber(c echo.Context) (uint64, bool) {
	return paramUint(c, "number")
}

// List returns batches filtered by status, operator_name, location,
// operator_id and created_by.
func (h *BatchHandler) List(c echo.Context) error {
	opID, ok1 := queryUint(c, "operator_id")
	createdBy, ok2 := queryUint(c, "created_by")
	if !ok1 || !ok2 {
		return badRequest(c, "invalid filter")
	}
	status := c.QueryParam("status")
	if status != "" && !lot.BatchStatus(status).Valid() {
		return badRequest(c, "invalid status")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Batches.List(ctx, repository.BatchFilter{
		Status:       status,
		OperatorName: c.QueryParam("operator_name"),
		Location:     c.QueryParam("location"),
		OperatorID:   opID,
		CreatedBy:    createdBy,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns one batch by number.
func (h *BatchHandler) Get(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Batches.GetByNumber(ctx, n)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Create registers a pending batch.  total_boxes defaults to the
// configured lot geometry.
func (h *BatchHandler) Create(c echo.Context) error {
	var req batchReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.OperatorName = strings.TrimSpace(req.OperatorName)
	req.Location = strings.TrimSpace(req.Location)
	if req.BatchNumber == 0 || req.OperatorName == "" || req.Location == "" || req.ProductionDate == "" {
		return badRequest(c, "batch_number, operator_name, location and production_date required")
	}
	date, err := parseProductionDate(req.ProductionDate)
	if err != nil {
		return badRequest(c, "invalid production_date")
	}
	if req.TotalBoxes < 0 {
		return badRequest(c, "total_boxes must be > 0")
	}
	if req.TotalBoxes == 0 {
		req.TotalBoxes = h.Settings.DefaultTotalBoxes
	}
	if limit := h.maxBoxes(); req.TotalBoxes > limit {
		return badRequest(c, fmt.Sprintf("total_boxes must be <= %d", limit))
	}

	b := &model.Batch{
		Number:         req.BatchNumber,
		OperatorName:   req.OperatorName,
		Location:       req.Location,
		ProductionDate: date,
		TotalBoxes:     req.TotalBoxes,
		Status:         string(lot.StatusPending),
		OperatorID:     req.OperatorID,
	}
	if uid, ok := middleware.UserID(c); ok {
		b.CreatedBy = &uid
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Batches.Create(ctx, b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Batch created successfully",
		"batch_id":     b.ID,
		"batch_number": b.Number,
	})
}

// Update edits the descriptive fields of a batch.  The box count is
// frozen once coupons exist.
func (h *BatchHandler) Update(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	var req batchReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Batches.GetByNumber(ctx, n)
	if err != nil {
		return respondError(c, err)
	}
	if s := strings.TrimSpace(req.OperatorName); s != "" {
		b.OperatorName = s
	}
	if s := strings.TrimSpace(req.Location); s != "" {
		b.Location = s
	}
	if req.ProductionDate != "" {
		if b.ProductionDate, err = parseProductionDate(req.ProductionDate); err != nil {
			return badRequest(c, "invalid production_date")
		}
	}
	if req.TotalBoxes != 0 && req.TotalBoxes != b.TotalBoxes {
		if req.TotalBoxes < 0 {
			return badRequest(c, "total_boxes must be > 0")
		}
		if limit := h.maxBoxes(); req.TotalBoxes > limit {
			return badRequest(c, fmt.Sprintf("total_boxes must be <= %d", limit))
		}
		if !lot.CanGenerate(lot.BatchStatus(b.Status)) {
			return respondError(c, repository.ErrConflict)
		}
		b.TotalBoxes = req.TotalBoxes
	}
	if req.OperatorID != nil {
		b.OperatorID = req.OperatorID
	}
	if err := h.Batches.Update(ctx, b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete removes a batch that has not reached QC.
func (h *BatchHandler) Delete(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Batches.Delete(ctx, n); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "batch deleted"})
}

// Detail returns the batch with coupons, QC history and logs.
func (h *BatchHandler) Detail(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	d, err := h.Details.Detail(ctx, n)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Report returns the production listing as data and as preformatted text.
func (h *BatchHandler) Report(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	r, err := h.Reports.ProductionReport(ctx, n)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"data":            r,
		"formattedReport": report.Text(*r),
	})
}

// ReportCSV streams the production listing as CSV.
func (h *BatchHandler) ReportCSV(c echo.Context) error {
	n, ok := batchNumber(c)
	if !ok {
		return badRequest(c, "invalid batch number")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	r, err := h.Reports.ProductionReport(ctx, n)
	if err != nil {
		return respondError(c, err)
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="batch-%d.csv"`, n))
	res.WriteHeader(http.StatusOK)
	return report.WriteCSV(res, *r)
}
