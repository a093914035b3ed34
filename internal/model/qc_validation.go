package model

import (
	"time"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

// QCValidation mirrors a row of the `qc_validations` table.  Rows are never
// updated; a later QC run adds new rows that supersede older ones.
// ValidationDetails holds the JSON encoding of a lot.Detail.
type QCValidation struct {
	ID                uint64    `json:"qc_id"`
	BatchID           uint64    `json:"batch_id"`
	ValidationType    string    `json:"validation_type"`
	ValidationStatus  string    `json:"validation_status"`
	ValidationDetails string    `json:"validation_details"`
	ValidatedBy       string    `json:"validated_by"`
	ValidatedByUserID *uint64   `json:"validated_by_user_id,omitempty"`
	ValidatedAt       time.Time `json:"validated_at"`
}

// QCValidationFromLot encodes a reporter record for storage.
func QCValidationFromLot(v lot.QCValidation, userID *uint64) (QCValidation, error) {
	raw, err := lot.MarshalDetail(v.Details)
	if err != nil {
		return QCValidation{}, err
	}
	return QCValidation{
		BatchID:           v.BatchID,
		ValidationType:    string(v.Type),
		ValidationStatus:  string(v.Status),
		ValidationDetails: string(raw),
		ValidatedBy:       v.ValidatedBy,
		ValidatedByUserID: userID,
		ValidatedAt:       v.ValidatedAt,
	}, nil
}

// Detail decodes ValidationDetails according to ValidationType.
func (q QCValidation) Detail() (lot.Detail, error) {
	return lot.UnmarshalDetail(lot.ValidationType(q.ValidationType), []byte(q.ValidationDetails))
}
