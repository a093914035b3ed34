package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const qcColumns = `qc_id, batch_id, validation_type, validation_status, COALESCE(validation_details, ''),
    validated_by, validated_by_user_id, validated_at`

// QCValidationRepo encapsulates database operations for qc_validations.
// Rows are append-only.
type QCValidationRepo struct {
	db *sql.DB
}

// NewQCValidationRepo constructs a QCValidationRepo given a DB handle.
func NewQCValidationRepo(db *sql.DB) *QCValidationRepo { return &QCValidationRepo{db: db} }

// QCFilter narrows List.
type QCFilter struct {
	BatchID           uint64
	ValidationStatus  string
	ValidatedBy       string
	ValidatedByUserID uint64
}

func scanQC(row interface{ Scan(...any) error }) (*model.QCValidation, error) {
	var (
		v      model.QCValidation
		userID sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.BatchID, &v.ValidationType, &v.ValidationStatus, &v.ValidationDetails,
		&v.ValidatedBy, &userID, &v.ValidatedAt); err != nil {
		return nil, err
	}
	v.ValidatedByUserID = uintPtr(userID)
	return &v, nil
}

// CreateBulkTx inserts the records of one QC run within tx.
func (r *QCValidationRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, vs []model.QCValidation) error {
	if len(vs) == 0 {
		return nil
	}
	query := `INSERT INTO qc_validations (batch_id, validation_type, validation_status, validation_details, validated_by, validated_by_user_id, validated_at) VALUES `
	args := make([]any, 0, len(vs)*7)
	for i, v := range vs {
		if i > 0 {
			query += ","
		}
		query += placeholders(7)
		args = append(args, v.BatchID, v.ValidationType, v.ValidationStatus, nullString(v.ValidationDetails),
			v.ValidatedBy, nullUint(v.ValidatedByUserID), v.ValidatedAt)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "qc: bulk insert")
	}
	return nil
}

// List returns validations matching f, newest first.
func (r *QCValidationRepo) List(ctx context.Context, f QCFilter) ([]model.QCValidation, error) {
	var w where
	if f.BatchID != 0 {
		w.add("batch_id = ?", f.BatchID)
	}
	if f.ValidationStatus != "" {
		w.add("validation_status = ?", f.ValidationStatus)
	}
	if f.ValidatedBy != "" {
		w.add("validated_by = ?", f.ValidatedBy)
	}
	if f.ValidatedByUserID != 0 {
		w.add("validated_by_user_id = ?", f.ValidatedByUserID)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+qcColumns+` FROM qc_validations`+w.String()+
		` ORDER BY validated_at DESC, qc_id DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "qc: list")
	}
	defer rows.Close()
	out := []model.QCValidation{}
	for rows.Next() {
		v, err := scanQC(rows)
		if err != nil {
			return nil, errors.Wrap(err, "qc: scan")
		}
		out = append(out, *v)
	}
	return out, errors.Wrap(rows.Err(), "qc: rows")
}

// ListByBatch returns the full QC history of a batch, newest first.
func (r *QCValidationRepo) ListByBatch(ctx context.Context, batchID uint64) ([]model.QCValidation, error) {
	return r.List(ctx, QCFilter{BatchID: batchID})
}

// GetByID returns one validation or ErrNotFound.
func (r *QCValidationRepo) GetByID(ctx context.Context, id uint64) (*model.QCValidation, error) {
	v, err := scanQC(r.db.QueryRowContext(ctx, `SELECT `+qcColumns+` FROM qc_validations WHERE qc_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "qc: select")
	}
	return v, nil
}
