package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const logColumns = `log_id, batch_id, action_type, COALESCE(action_description, ''), operator_name,
    operator_user_id, location, timestamp, COALESCE(metadata, '')`

// ProductionLogRepo encapsulates database operations for production_logs.
type ProductionLogRepo struct {
	db *sql.DB
}

// NewProductionLogRepo constructs a ProductionLogRepo given a DB handle.
func NewProductionLogRepo(db *sql.DB) *ProductionLogRepo { return &ProductionLogRepo{db: db} }

// LogFilter narrows List.
type LogFilter struct {
	BatchID        uint64
	ActionType     string
	OperatorName   string
	Location       string
	OperatorUserID uint64
}

func scanLog(row interface{ Scan(...any) error }) (*model.ProductionLog, error) {
	var (
		l      model.ProductionLog
		userID sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.BatchID, &l.ActionType, &l.ActionDescription, &l.OperatorName,
		&userID, &l.Location, &l.Timestamp, &l.Metadata); err != nil {
		return nil, err
	}
	l.OperatorUserID = uintPtr(userID)
	return &l, nil
}

func createLog(ctx context.Context, q querier, l *model.ProductionLog) error {
	const stmt = `INSERT INTO production_logs (batch_id, action_type, action_description, operator_name, operator_user_id, location, timestamp, metadata)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, l.BatchID, l.ActionType, nullString(l.ActionDescription), l.OperatorName,
		nullUint(l.OperatorUserID), l.Location, l.Timestamp, nullString(l.Metadata))
	if err != nil {
		if isMissingParent(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "production log: insert")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "production log: last insert id")
	}
	l.ID = uint64(id)
	return nil
}

// Create inserts l and populates its ID.
func (r *ProductionLogRepo) Create(ctx context.Context, l *model.ProductionLog) error {
	return createLog(ctx, r.db, l)
}

// CreateTx inserts l within tx.
func (r *ProductionLogRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.ProductionLog) error {
	return createLog(ctx, tx, l)
}

// List returns logs matching f, newest first.
func (r *ProductionLogRepo) List(ctx context.Context, f LogFilter) ([]model.ProductionLog, error) {
	var w where
	if f.BatchID != 0 {
		w.add("batch_id = ?", f.BatchID)
	}
	if f.ActionType != "" {
		w.add("action_type = ?", f.ActionType)
	}
	if f.OperatorName != "" {
		w.add("operator_name = ?", f.OperatorName)
	}
	if f.Location != "" {
		w.add("location = ?", f.Location)
	}
	if f.OperatorUserID != 0 {
		w.add("operator_user_id = ?", f.OperatorUserID)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+logColumns+` FROM production_logs`+w.String()+
		` ORDER BY timestamp DESC, log_id DESC`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "production log: list")
	}
	defer rows.Close()
	out := []model.ProductionLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, errors.Wrap(err, "production log: scan")
		}
		out = append(out, *l)
	}
	return out, errors.Wrap(rows.Err(), "production log: rows")
}

// ListByBatch returns the logs of one batch.
func (r *ProductionLogRepo) ListByBatch(ctx context.Context, batchID uint64) ([]model.ProductionLog, error) {
	return r.List(ctx, LogFilter{BatchID: batchID})
}

// GetByID returns one log or ErrNotFound.
func (r *ProductionLogRepo) GetByID(ctx context.Context, id uint64) (*model.ProductionLog, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM production_logs WHERE log_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "production log: select")
	}
	return l, nil
}
