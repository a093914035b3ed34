package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const prizeColumns = `config_id, prize_amount, total_coupons, coupons_per_box, COALESCE(prize_description, ''),
    is_active, created_by, updated_by, created_at, updated_at`

// PrizeConfigRepo encapsulates database operations for prize_config.
type PrizeConfigRepo struct {
	db *sql.DB
}

// NewPrizeConfigRepo constructs a PrizeConfigRepo given a DB handle.
func NewPrizeConfigRepo(db *sql.DB) *PrizeConfigRepo { return &PrizeConfigRepo{db: db} }

func scanPrize(row interface{ Scan(...any) error }) (*model.PrizeConfig, error) {
	var (
		p                    model.PrizeConfig
		createdBy, updatedBy sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.PrizeAmount, &p.TotalCoupons, &p.CouponsPerBox, &p.Description,
		&p.IsActive, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedBy = uintPtr(createdBy)
	p.UpdatedBy = uintPtr(updatedBy)
	return &p, nil
}

func (r *PrizeConfigRepo) list(ctx context.Context, q querier, activeOnly bool) ([]model.PrizeConfig, error) {
	query := `SELECT ` + prizeColumns + ` FROM prize_config`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY prize_amount DESC`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "prize config: list")
	}
	defer rows.Close()
	out := []model.PrizeConfig{}
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, errors.Wrap(err, "prize config: scan")
		}
		out = append(out, *p)
	}
	return out, errors.Wrap(rows.Err(), "prize config: rows")
}

// List returns every config, highest amount first.
func (r *PrizeConfigRepo) List(ctx context.Context) ([]model.PrizeConfig, error) {
	return r.list(ctx, r.db, false)
}

// ListActive returns the configs with is_active set.
func (r *PrizeConfigRepo) ListActive(ctx context.Context) ([]model.PrizeConfig, error) {
	return r.list(ctx, r.db, true)
}

// ListActiveTx is ListActive inside tx.
func (r *PrizeConfigRepo) ListActiveTx(ctx context.Context, tx *sql.Tx) ([]model.PrizeConfig, error) {
	return r.list(ctx, tx, true)
}

// Count returns the number of rows, active or not.
func (r *PrizeConfigRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prize_config`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "prize config: count")
	}
	return n, nil
}

// GetByID returns one config or ErrNotFound.
func (r *PrizeConfigRepo) GetByID(ctx context.Context, id uint64) (*model.PrizeConfig, error) {
	p, err := scanPrize(r.db.QueryRowContext(ctx, `SELECT `+prizeColumns+` FROM prize_config WHERE config_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "prize config: select")
	}
	return p, nil
}

// Create inserts p and populates its ID.
func (r *PrizeConfigRepo) Create(ctx context.Context, p *model.PrizeConfig) error {
	const q = `INSERT INTO prize_config (prize_amount, total_coupons, coupons_per_box, prize_description, is_active, created_by, updated_by)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.PrizeAmount, p.TotalCoupons, p.CouponsPerBox, nullString(p.Description),
		p.IsActive, nullUint(p.CreatedBy), nullUint(p.CreatedBy))
	if err != nil {
		return errors.Wrap(err, "prize config: insert")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "prize config: last insert id")
	}
	p.ID = uint64(id)
	return nil
}

// Update rewrites every editable column of p.
func (r *PrizeConfigRepo) Update(ctx context.Context, p *model.PrizeConfig) error {
	const q = `UPDATE prize_config SET prize_amount = ?, total_coupons = ?, coupons_per_box = ?, prize_description = ?,
               is_active = ?, updated_by = ? WHERE config_id = ?`
	res, err := r.db.ExecContext(ctx, q, p.PrizeAmount, p.TotalCoupons, p.CouponsPerBox, nullString(p.Description),
		p.IsActive, nullUint(p.UpdatedBy), p.ID)
	if err != nil {
		return errors.Wrap(err, "prize config: update")
	}
	return expectOne(res)
}

// Delete removes a config row.
func (r *PrizeConfigRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prize_config WHERE config_id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "prize config: delete")
	}
	return expectOne(res)
}
