package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
)

// LogStore is the part of repository.ProductionLogRepo the handlers use.
type LogStore interface {
	Create(ctx context.Context, l *model.ProductionLog) error
	GetByID(ctx context.Context, id uint64) (*model.ProductionLog, error)
	List(ctx context.Context, f repository.LogFilter) ([]model.ProductionLog, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]model.ProductionLog, error)
}

// ProductionLogHandler serves the production log endpoints.
type ProductionLogHandler struct {
	Logs LogStore
}

func NewProductionLogHandler(l LogStore) *ProductionLogHandler {
	return &ProductionLogHandler{Logs: l}
}

type logReq struct {
	BatchID           uint64 `json:"batch_id"`
	ActionType        string `json:"action_type"`
	ActionDescription string `json:"action_description"`
	OperatorName      string `json:"operator_name"`
	Location          string `json:"location"`
	Metadata          string `json:"metadata"`
}

// List returns logs filtered by batch_id, action_type, operator_name and
// location.
func (h *ProductionLogHandler) List(c echo.Context) error {
	batchID, ok := queryUint(c, "batch_id")
	if !ok {
		return badRequest(c, "invalid batch_id")
	}
	action := strings.ToUpper(c.QueryParam("action_type"))
	if action != "" && !model.ValidAction(action) {
		return badRequest(c, "invalid action_type")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Logs.List(ctx, repository.LogFilter{
		BatchID:      batchID,
		ActionType:   action,
		OperatorName: c.QueryParam("operator_name"),
		Location:     c.QueryParam("location"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns one log entry.
func (h *ProductionLogHandler) Get(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	l, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// ByBatch returns every log of a batch.
func (h *ProductionLogHandler) ByBatch(c echo.Context) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return badRequest(c, "invalid batch id")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rows, err := h.Logs.ListByBatch(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Create records a manual production event such as a PRINT.  The
// operator name defaults to the caller.
func (h *ProductionLogHandler) Create(c echo.Context) error {
	var req logReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.ActionType = strings.ToUpper(strings.TrimSpace(req.ActionType))
	if req.BatchID == 0 || !model.ValidAction(req.ActionType) {
		return badRequest(c, "batch_id and a valid action_type required")
	}
	actor := middleware.Actor(c)
	l := &model.ProductionLog{
		BatchID:           req.BatchID,
		ActionType:        req.ActionType,
		ActionDescription: strings.TrimSpace(req.ActionDescription),
		OperatorName:      strings.TrimSpace(req.OperatorName),
		OperatorUserID:    actor.UserID,
		Location:          strings.TrimSpace(req.Location),
		Metadata:          strings.TrimSpace(req.Metadata),
		Timestamp:         time.Now().UTC(),
	}
	if l.OperatorName == "" {
		l.OperatorName = actor.Name
	}
	if l.OperatorName == "" || l.Location == "" {
		return badRequest(c, "operator_name and location required")
	}
	if l.Metadata != "" && !json.Valid([]byte(l.Metadata)) {
		return badRequest(c, "metadata must be JSON")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Logs.Create(ctx, l); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}
