// Package service orchestrates coupon generation, QC runs and reporting on
// top of the pure lot engine.  It owns no SQL: persistence and event
// delivery are reached through the interfaces below.
package service

import (
	"context"
	stderrors "errors"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/queue"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
)

// ErrBatchNotFound is returned when the batch a request names does not exist.
var ErrBatchNotFound = stderrors.New("batch not found")

// ErrInvalidTransition is returned when the batch status does not allow
// the requested operation, e.g. generating for a released batch.
var ErrInvalidTransition = stderrors.New("batch status does not allow this operation")

// Persistence is the storage port.  SaveCoupons and SaveValidations are
// transactional; SaveCoupons serializes concurrent writers per batch and
// reports a non-empty batch as *lot.AlreadyGeneratedError.
type Persistence interface {
	ActivePrizeConfigs(ctx context.Context) ([]model.PrizeConfig, error)
	BatchByNumber(ctx context.Context, number uint64) (*model.Batch, error)
	BatchByID(ctx context.Context, id uint64) (*model.Batch, error)
	ExistingCouponsFor(ctx context.Context, batchID uint64) (int, error)
	CouponsFor(ctx context.Context, batchID uint64) ([]model.Coupon, error)
	BatchesAwaitingQC(ctx context.Context, limit int) ([]model.Batch, error)
	SaveCoupons(ctx context.Context, batchID uint64, coupons []lot.Coupon, configs []model.PrizeConfig, warnings []string, actor model.Actor) error
	SaveValidations(ctx context.Context, batchID uint64, rep lot.Report, actor model.Actor) ([]model.QCValidation, error)
}

// EventPublisher delivers domain events.  Failures never fail the
// operation that emitted the event.
type EventPublisher interface {
	PublishCouponsGenerated(ctx context.Context, ev queue.CouponsGeneratedEvent) error
	PublishQCCompleted(ctx context.Context, ev queue.QCCompletedEvent) error
}

// mapStoreErr translates repository sentinels into service errors.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrBatchNotFound
	case stderrors.Is(err, repository.ErrConflict):
		return ErrInvalidTransition
	}
	return err
}
