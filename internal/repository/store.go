package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// Store groups the repositories the lot service needs and owns the
// multi-table transactions of generation, QC and coupon correction.
type Store struct {
	db      *sql.DB
	Batches *BatchRepo
	Coupons *CouponRepo
	Prizes  *PrizeConfigRepo
	QC      *QCValidationRepo
	Logs    *ProductionLogRepo
	now     func() time.Time
}

// NewStore wires every repository onto db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		Batches: NewBatchRepo(db),
		Coupons: NewCouponRepo(db),
		Prizes:  NewPrizeConfigRepo(db),
		QC:      NewQCValidationRepo(db),
		Logs:    NewProductionLogRepo(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ActivePrizeConfigs returns the prize table used for new lots.
func (s *Store) ActivePrizeConfigs(ctx context.Context) ([]model.PrizeConfig, error) {
	return s.Prizes.ListActive(ctx)
}

// BatchByNumber looks a batch up by its business number.
func (s *Store) BatchByNumber(ctx context.Context, number uint64) (*model.Batch, error) {
	return s.Batches.GetByNumber(ctx, number)
}

// BatchByID looks a batch up by primary key.
func (s *Store) BatchByID(ctx context.Context, id uint64) (*model.Batch, error) {
	return s.Batches.GetByID(ctx, id)
}

// ExistingCouponsFor counts the coupons a batch already owns.
func (s *Store) ExistingCouponsFor(ctx context.Context, batchID uint64) (int, error) {
	return s.Coupons.CountByBatch(ctx, batchID)
}

// CouponsFor returns the batch's lot in coupon-number order.
func (s *Store) CouponsFor(ctx context.Context, batchID uint64) ([]model.Coupon, error) {
	return s.Coupons.ListByBatch(ctx, batchID)
}

// BatchesAwaitingQC returns up to limit completed batches without QC records.
func (s *Store) BatchesAwaitingQC(ctx context.Context, limit int) ([]model.Batch, error) {
	return s.Batches.ListAwaitingQC(ctx, limit)
}

type generateMeta struct {
	TotalCoupons int                 `json:"total_coupons"`
	Winners      int                 `json:"winners"`
	PrizeConfigs []model.PrizeConfig `json:"prize_configs"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// SaveCoupons persists a freshly generated lot.  The batch row is locked
// first so concurrent generations for one batch are serialized; the
// coupon count is re-checked under the lock and a non-empty batch yields
// *lot.AlreadyGeneratedError.  A batch whose status no longer allows
// generation yields ErrConflict.  On success the batch is completed and a
// GENERATE log carrying the prize table snapshot and its warnings is
// written, all in one
// transaction.
func (s *Store) SaveCoupons(ctx context.Context, batchID uint64, coupons []lot.Coupon, configs []model.PrizeConfig, warnings []string, actor model.Actor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := s.Batches.LockByIDTx(ctx, tx, batchID)
	if err != nil {
		return err
	}
	existing, err := s.Coupons.CountByBatchTx(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if existing > 0 {
		return &lot.AlreadyGeneratedError{BatchID: batchID, Existing: existing}
	}
	if !lot.CanGenerate(lot.BatchStatus(b.Status)) {
		return ErrConflict
	}

	at := s.now()
	rows := make([]model.Coupon, 0, len(coupons))
	winners := 0
	for _, c := range coupons {
		rows = append(rows, model.CouponFromLot(c, actor.UserID, at))
		if c.IsWinner {
			winners++
		}
	}
	if err := s.Coupons.CreateBulkTx(ctx, tx, rows); err != nil {
		return err
	}
	if err := s.Batches.UpdateStatusTx(ctx, tx, batchID, string(lot.StatusCompleted)); err != nil {
		return err
	}

	meta, err := json.Marshal(generateMeta{
		TotalCoupons: len(coupons),
		Winners:      winners,
		PrizeConfigs: configs,
		Warnings:     warnings,
	})
	if err != nil {
		return errors.Wrap(err, "store: encode generate metadata")
	}
	entry := &model.ProductionLog{
		BatchID:           batchID,
		ActionType:        model.ActionGenerate,
		ActionDescription: fmt.Sprintf("Generated %d coupons (%d winners) for batch %d", len(coupons), winners, b.Number),
		OperatorName:      actorName(actor, b),
		OperatorUserID:    actor.UserID,
		Location:          b.Location,
		Timestamp:         at,
		Metadata:          string(meta),
	}
	if err := s.Logs.CreateTx(ctx, tx, entry); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "store: commit")
}

type qcMeta struct {
	Status  string            `json:"status"`
	Results map[string]string `json:"results"`
}

// SaveValidations records the three QC records of a run and moves the
// batch to the report's release status.  ErrConflict when the batch is in
// a status that cannot accept that move.
func (s *Store) SaveValidations(ctx context.Context, batchID uint64, rep lot.Report, actor model.Actor) ([]model.QCValidation, error) {
	rows := make([]model.QCValidation, 0, len(rep.Validations))
	results := make(map[string]string, len(rep.Validations))
	for _, v := range rep.Validations {
		row, err := model.QCValidationFromLot(v, actor.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "store: encode validation details")
		}
		rows = append(rows, row)
		results[row.ValidationType] = row.ValidationStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "store: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := s.Batches.LockByIDTx(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	from := lot.BatchStatus(b.Status)
	if !lot.CanAudit(from) || !lot.CanTransition(from, rep.Status) {
		return nil, ErrConflict
	}
	if err := s.QC.CreateBulkTx(ctx, tx, rows); err != nil {
		return nil, err
	}
	if err := s.Batches.UpdateStatusTx(ctx, tx, batchID, string(rep.Status)); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(qcMeta{Status: string(rep.Status), Results: results})
	if err != nil {
		return nil, errors.Wrap(err, "store: encode qc metadata")
	}
	entry := &model.ProductionLog{
		BatchID:           batchID,
		ActionType:        model.ActionQCCheck,
		ActionDescription: fmt.Sprintf("QC run for batch %d: %s", b.Number, rep.Status),
		OperatorName:      actorName(actor, b),
		OperatorUserID:    actor.UserID,
		Location:          b.Location,
		Timestamp:         s.now(),
		Metadata:          string(meta),
	}
	if err := s.Logs.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "store: commit")
	}
	return rows, nil
}

type correctionMeta struct {
	CouponNumber string `json:"coupon_number"`
	OldAmount    int64  `json:"old_amount"`
	NewAmount    int64  `json:"new_amount"`
}

// CorrectCoupon rewrites the prize of one coupon of a completed or failed
// batch and logs an UPDATE entry.  Released batches are ErrConflict.
func (s *Store) CorrectCoupon(ctx context.Context, couponID uint64, amount int64, description string, actor model.Actor) (*model.Coupon, error) {
	c, err := s.Coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "store: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := s.Batches.LockByIDTx(ctx, tx, c.BatchID)
	if err != nil {
		return nil, err
	}
	if !lot.CanAudit(lot.BatchStatus(b.Status)) {
		return nil, ErrConflict
	}
	if amount == 0 {
		description = ""
	}
	if err := s.Coupons.UpdatePrizeTx(ctx, tx, couponID, amount, description); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(correctionMeta{CouponNumber: c.Number, OldAmount: c.PrizeAmount, NewAmount: amount})
	if err != nil {
		return nil, errors.Wrap(err, "store: encode correction metadata")
	}
	entry := &model.ProductionLog{
		BatchID:           b.ID,
		ActionType:        model.ActionUpdate,
		ActionDescription: fmt.Sprintf("Coupon %s prize changed from %d to %d", c.Number, c.PrizeAmount, amount),
		OperatorName:      actorName(actor, b),
		OperatorUserID:    actor.UserID,
		Location:          b.Location,
		Timestamp:         s.now(),
		Metadata:          string(meta),
	}
	if err := s.Logs.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "store: commit")
	}
	c.PrizeAmount = amount
	c.PrizeDescription = description
	c.IsWinner = amount > 0
	return c, nil
}

// Detail loads a batch with its coupons, QC history and logs.
func (s *Store) Detail(ctx context.Context, number uint64) (*model.BatchDetail, error) {
	b, err := s.Batches.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	d := &model.BatchDetail{Batch: *b}
	if d.Coupons, err = s.Coupons.ListByBatch(ctx, b.ID); err != nil {
		return nil, err
	}
	if d.QCValidations, err = s.QC.ListByBatch(ctx, b.ID); err != nil {
		return nil, err
	}
	if d.ProductionLogs, err = s.Logs.ListByBatch(ctx, b.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// SeedPrizeConfigs inserts configs when the prize_config table is empty
// and reports how many rows were written.
func (s *Store) SeedPrizeConfigs(ctx context.Context, configs []lot.PrizeConfig) (int, error) {
	n, err := s.Prizes.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	for i, c := range configs {
		row := &model.PrizeConfig{
			PrizeAmount:   c.Amount,
			TotalCoupons:  c.TotalCoupons,
			CouponsPerBox: c.CouponsPerBox,
			IsActive:      c.IsActive,
			Description:   c.Description,
		}
		if err := s.Prizes.Create(ctx, row); err != nil {
			return i, err
		}
	}
	return len(configs), nil
}

func actorName(a model.Actor, b *model.Batch) string {
	if a.Name != "" {
		return a.Name
	}
	return b.OperatorName
}
