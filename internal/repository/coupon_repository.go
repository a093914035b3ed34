package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const couponColumns = `coupon_id, coupon_number, prize_amount, prize_description, box_number, batch_id,
    is_winner, generated_at, generated_by`

// insertChunk bounds the rows per INSERT statement; a full lot is written
// in several statements inside one transaction.
const insertChunk = 1000

// CouponRepo encapsulates database operations for the coupons table.
type CouponRepo struct {
	db *sql.DB
}

// NewCouponRepo constructs a CouponRepo given a DB handle.
func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

// CouponFilter narrows List.  Nil pointers are ignored.
type CouponFilter struct {
	BatchID     uint64
	BoxNumber   *int
	IsWinner    *bool
	GeneratedBy uint64
}

func scanCoupon(row interface{ Scan(...any) error }) (*model.Coupon, error) {
	var (
		c           model.Coupon
		generatedBy sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Number, &c.PrizeAmount, &c.PrizeDescription, &c.BoxNumber, &c.BatchID,
		&c.IsWinner, &c.GeneratedAt, &generatedBy); err != nil {
		return nil, err
	}
	c.GeneratedBy = uintPtr(generatedBy)
	return &c, nil
}

func countByBatch(ctx context.Context, q querier, batchID uint64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons WHERE batch_id = ?`, batchID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "coupon: count")
	}
	return n, nil
}

// CountByBatch returns how many coupons the batch owns.
func (r *CouponRepo) CountByBatch(ctx context.Context, batchID uint64) (int, error) {
	return countByBatch(ctx, r.db, batchID)
}

// CountByBatchTx is CountByBatch inside tx, used after the batch row lock.
func (r *CouponRepo) CountByBatchTx(ctx context.Context, tx *sql.Tx, batchID uint64) (int, error) {
	return countByBatch(ctx, tx, batchID)
}

// CreateBulkTx inserts coupons in chunks of insertChunk rows within tx.
// Passing an empty slice has no effect.
func (r *CouponRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, coupons []model.Coupon) error {
	for start := 0; start < len(coupons); start += insertChunk {
		end := min(start+insertChunk, len(coupons))
		if err := insertCoupons(ctx, tx, coupons[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertCoupons(ctx context.Context, tx *sql.Tx, coupons []model.Coupon) error {
	query := `INSERT INTO coupons (coupon_number, prize_amount, prize_description, box_number, batch_id, is_winner, generated_at, generated_by) VALUES `
	args := make([]any, 0, len(coupons)*8)
	row := placeholders(8)
	for i, c := range coupons {
		if i > 0 {
			query += ","
		}
		query += row
		args = append(args, c.Number, c.PrizeAmount, c.PrizeDescription, c.BoxNumber, c.BatchID, c.IsWinner,
			c.GeneratedAt, nullUint(c.GeneratedBy))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "coupon: bulk insert")
	}
	return nil
}

// ListByBatch returns the batch's coupons in coupon-number order.
func (r *CouponRepo) ListByBatch(ctx context.Context, batchID uint64) ([]model.Coupon, error) {
	return r.List(ctx, CouponFilter{BatchID: batchID})
}

// List returns coupons matching f ordered by batch, then coupon number.
// Numbers share one width within a batch, so string order is numeric order.
func (r *CouponRepo) List(ctx context.Context, f CouponFilter) ([]model.Coupon, error) {
	var w where
	if f.BatchID != 0 {
		w.add("batch_id = ?", f.BatchID)
	}
	if f.BoxNumber != nil {
		w.add("box_number = ?", *f.BoxNumber)
	}
	if f.IsWinner != nil {
		w.add("is_winner = ?", *f.IsWinner)
	}
	if f.GeneratedBy != 0 {
		w.add("generated_by = ?", f.GeneratedBy)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons`+w.String()+
		` ORDER BY batch_id, LENGTH(coupon_number), coupon_number`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "coupon: list")
	}
	defer rows.Close()
	out := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, errors.Wrap(err, "coupon: scan")
		}
		out = append(out, *c)
	}
	return out, errors.Wrap(rows.Err(), "coupon: rows")
}

// GetByNumber returns the coupon with the given number.  Numbers repeat
// across batches: with batchID 0 the coupon of the newest batch wins.
func (r *CouponRepo) GetByNumber(ctx context.Context, number string, batchID uint64) (*model.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE coupon_number = ?`
	args := []any{number}
	if batchID != 0 {
		q += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	q += ` ORDER BY batch_id DESC LIMIT 1`
	c, err := scanCoupon(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "coupon: select by number")
	}
	return c, nil
}

// GetByID returns a coupon by primary key.
func (r *CouponRepo) GetByID(ctx context.Context, id uint64) (*model.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE coupon_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "coupon: select by id")
	}
	return c, nil
}

// UpdatePrizeTx rewrites the prize of one coupon; is_winner follows the
// amount.  Used for administrative corrections after a failed QC run.
func (r *CouponRepo) UpdatePrizeTx(ctx context.Context, tx *sql.Tx, id uint64, amount int64, description string) error {
	res, err := tx.ExecContext(ctx, `UPDATE coupons SET prize_amount = ?, prize_description = ?, is_winner = ? WHERE coupon_id = ?`,
		amount, description, amount > 0, id)
	if err != nil {
		return errors.Wrap(err, "coupon: update prize")
	}
	return expectOne(res)
}
