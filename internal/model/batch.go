package model

import (
	"time"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

// Batch mirrors a row of the `batches` table.  A batch owns exactly one
// lot of coupons; its status follows lot.BatchStatus.
type Batch struct {
	ID             uint64    `json:"batch_id"`              // batches.batch_id
	Number         uint64    `json:"batch_number"`          // batches.batch_number (unique)
	OperatorName   string    `json:"operator_name"`         // batches.operator_name
	Location       string    `json:"location"`              // batches.location
	ProductionDate time.Time `json:"production_date"`       // batches.production_date
	TotalBoxes     int       `json:"total_boxes"`           // batches.total_boxes
	Status         string    `json:"status"`                // batches.status
	CreatedBy      *uint64   `json:"created_by,omitempty"`  // batches.created_by (nullable)
	OperatorID     *uint64   `json:"operator_id,omitempty"` // batches.operator_id (nullable)
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LotBatch returns the descriptor the generator works on.
func (b Batch) LotBatch(existing int) lot.Batch {
	return lot.Batch{ID: b.ID, Number: b.Number, TotalBoxes: b.TotalBoxes, ExistingCoupons: existing}
}

// BatchDetail is a batch with its coupons, QC history and production logs.
type BatchDetail struct {
	Batch
	Coupons        []Coupon        `json:"coupons"`
	QCValidations  []QCValidation  `json:"qc_validations"`
	ProductionLogs []ProductionLog `json:"production_logs"`
}
