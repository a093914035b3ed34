package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const batchColumns = `batch_id, batch_number, operator_name, location, production_date, total_boxes,
    status, created_by, operator_id, created_at, updated_at`

// BatchRepo encapsulates database operations for the batches table.
type BatchRepo struct {
	db *sql.DB
}

// NewBatchRepo constructs a BatchRepo given a DB handle.
func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

// DB exposes the handle so callers can open transactions.
func (r *BatchRepo) DB() *sql.DB { return r.db }

// BatchFilter narrows List.  Zero values are ignored.
type BatchFilter struct {
	Status       string
	OperatorName string
	Location     string
	OperatorID   uint64
	CreatedBy    uint64
}

func scanBatch(row interface{ Scan(...any) error }) (*model.Batch, error) {
	var (
		b          model.Batch
		createdBy  sql.NullInt64
		operatorID sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Number, &b.OperatorName, &b.Location, &b.ProductionDate, &b.TotalBoxes,
		&b.Status, &createdBy, &operatorID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.CreatedBy = uintPtr(createdBy)
	b.OperatorID = uintPtr(operatorID)
	return &b, nil
}

func getBatch(ctx context.Context, q querier, clause string, arg any) (*model.Batch, error) {
	b, err := scanBatch(q.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE `+clause, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "batch: select")
	}
	return b, nil
}

// Create inserts a batch and populates its ID.  A taken batch_number
// yields ErrDuplicate.
func (r *BatchRepo) Create(ctx context.Context, b *model.Batch) error {
	const q = `INSERT INTO batches (batch_number, operator_name, location, production_date, total_boxes, status, created_by, operator_id)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Number, b.OperatorName, b.Location, b.ProductionDate, b.TotalBoxes,
		b.Status, nullUint(b.CreatedBy), nullUint(b.OperatorID))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "batch: insert")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "batch: last insert id")
	}
	b.ID = uint64(id)
	return nil
}

// GetByNumber returns the batch with the given batch_number or ErrNotFound.
func (r *BatchRepo) GetByNumber(ctx context.Context, number uint64) (*model.Batch, error) {
	return getBatch(ctx, r.db, "batch_number = ?", number)
}

// GetByID returns the batch with the given id or ErrNotFound.
func (r *BatchRepo) GetByID(ctx context.Context, id uint64) (*model.Batch, error) {
	return getBatch(ctx, r.db, "batch_id = ?", id)
}

// LockByIDTx reads the batch row with SELECT ... FOR UPDATE so concurrent
// writers on the same batch queue behind the transaction.
func (r *BatchRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Batch, error) {
	return getBatch(ctx, tx, "batch_id = ? FOR UPDATE", id)
}

// List returns batches matching f, newest first.
func (r *BatchRepo) List(ctx context.Context, f BatchFilter) ([]model.Batch, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.OperatorName != "" {
		w.add("operator_name = ?", f.OperatorName)
	}
	if f.Location != "" {
		w.add("location = ?", f.Location)
	}
	if f.OperatorID != 0 {
		w.add("operator_id = ?", f.OperatorID)
	}
	if f.CreatedBy != 0 {
		w.add("created_by = ?", f.CreatedBy)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches`+w.String()+` ORDER BY batch_number DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "batch: list")
	}
	defer rows.Close()
	out := []model.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, "batch: scan")
		}
		out = append(out, *b)
	}
	return out, errors.Wrap(rows.Err(), "batch: rows")
}

// ListAwaitingQC returns completed batches that have no QC record yet,
// oldest first.
func (r *BatchRepo) ListAwaitingQC(ctx context.Context, limit int) ([]model.Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM batches b
          WHERE b.status = 'completed'
            AND NOT EXISTS (SELECT 1 FROM qc_validations v WHERE v.batch_id = b.batch_id)
          ORDER BY b.batch_id LIMIT ` + strconv.Itoa(limit)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "batch: list awaiting qc")
	}
	defer rows.Close()
	var out []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, "batch: scan")
		}
		out = append(out, *b)
	}
	return out, errors.Wrap(rows.Err(), "batch: rows")
}

// Update writes the editable columns of b, keyed by batch_number.  Status
// changes go through UpdateStatusTx.
func (r *BatchRepo) Update(ctx context.Context, b *model.Batch) error {
	const q = `UPDATE batches SET operator_name = ?, location = ?, production_date = ?, total_boxes = ?, operator_id = ?
               WHERE batch_number = ?`
	res, err := r.db.ExecContext(ctx, q, b.OperatorName, b.Location, b.ProductionDate, b.TotalBoxes,
		nullUint(b.OperatorID), b.Number)
	if err != nil {
		return errors.Wrap(err, "batch: update")
	}
	return expectOne(res)
}

// UpdateStatusTx sets the status of a locked batch.
func (r *BatchRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE batches SET status = ? WHERE batch_id = ?`, status, id)
	if err != nil {
		return errors.Wrap(err, "batch: update status")
	}
	return expectOne(res)
}

// Delete removes a batch still in production together with its coupons
// and logs.  Batches that reached QC are kept as records: ErrConflict.
func (r *BatchRepo) Delete(ctx context.Context, number uint64) error {
	b, err := r.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	switch b.Status {
	case "qc_passed", "qc_failed":
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE batch_id = ?`, b.ID)
	if err != nil {
		return errors.Wrap(err, "batch: delete")
	}
	return expectOne(res)
}

// expectOne maps "no row touched" to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
