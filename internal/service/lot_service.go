package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/metrics"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/queue"
	"github.com/iliyamo/coupon-lot-qc/internal/report"
)

// LotService generates lots, runs QC and builds production reports.
type LotService struct {
	store     Persistence
	events    EventPublisher
	generator *lot.Generator
	reporter  *lot.Reporter
	now       func() time.Time
}

// NewLotService wires the engine onto store.  events may be nil when
// messaging is disabled.
func NewLotService(store Persistence, events EventPublisher, settings lot.Settings) *LotService {
	return &LotService{
		store:     store,
		events:    events,
		generator: lot.NewGenerator(settings),
		reporter:  lot.NewReporter(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateResult summarizes a successful generation.
type GenerateResult struct {
	Batch        model.Batch
	TotalCoupons int
	Winners      int
	// Warnings are non-fatal prize table problems, also recorded in the
	// GENERATE log.
	Warnings     []string
}

// GenerateCoupons builds and stores the lot of a batch.  Errors:
// ErrBatchNotFound, *lot.AlreadyGeneratedError, *lot.ConfigError and
// ErrInvalidTransition.  Nothing is persisted on any of them.
func (s *LotService) GenerateCoupons(ctx context.Context, batchID uint64, actor model.Actor) (*GenerateResult, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx).With().Uint64("batch_id", batchID).Logger()

	res, err := s.generate(ctx, batchID, actor)
	if err != nil {
		result := "error"
		if errors.Is(err, lot.ErrConfig) || errors.Is(err, lot.ErrAlreadyGenerated) ||
			errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrBatchNotFound) {
			result = "rejected"
		}
		metrics.ObserveGeneration(result, 0, time.Since(start))
		log.Warn().Err(err).Str("result", result).Msg("coupon generation failed")
		return nil, err
	}
	metrics.ObserveGeneration("success", res.TotalCoupons, time.Since(start))
	log.Info().Uint64("batch_number", res.Batch.Number).Int("coupons", res.TotalCoupons).
		Int("winners", res.Winners).Dur("took", time.Since(start)).Msg("coupons generated")
	for _, w := range res.Warnings {
		log.Warn().Str("warning", w).Msg("prize table warning")
	}

	if s.events != nil {
		ev := queue.CouponsGeneratedEvent{
			EventID:      queue.NewEventID(),
			BatchID:      res.Batch.ID,
			BatchNumber:  res.Batch.Number,
			TotalCoupons: res.TotalCoupons,
			Winners:      res.Winners,
			GeneratedBy:  actor.Name,
			UserID:       actor.UserID,
			OccurredAt:   queue.Timestamp(s.now()),
		}
		if err := s.events.PublishCouponsGenerated(ctx, ev); err != nil {
			log.Warn().Err(err).Msg("coupons.generated not published")
		}
	}
	return res, nil
}

func (s *LotService) generate(ctx context.Context, batchID uint64, actor model.Actor) (*GenerateResult, error) {
	b, err := s.store.BatchByID(ctx, batchID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	existing, err := s.store.ExistingCouponsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if existing == 0 && !lot.CanGenerate(lot.BatchStatus(b.Status)) {
		return nil, ErrInvalidTransition
	}
	configs, err := s.store.ActivePrizeConfigs(ctx)
	if err != nil {
		return nil, err
	}
	table := model.LotPrizeConfigs(configs)
	coupons, err := s.generator.Generate(b.LotBatch(existing), table)
	if err != nil {
		return nil, err
	}
	warnings := lot.ConfigWarnings(table, s.generator.Settings().DefaultCouponsPerBox)
	if err := s.store.SaveCoupons(ctx, b.ID, coupons, configs, warnings, actor); err != nil {
		return nil, mapStoreErr(err)
	}

	res := &GenerateResult{Batch: *b, TotalCoupons: len(coupons), Warnings: warnings}
	res.Batch.Status = string(lot.StatusCompleted)
	for _, c := range coupons {
		if c.IsWinner {
			res.Winners++
		}
	}
	return res, nil
}

// QCResult is the outcome of one QC run.
type QCResult struct {
	Batch       model.Batch
	Status      lot.BatchStatus
	Passed      bool
	Validations []model.QCValidation
}

// RunQC audits the stored lot of a batch and records the three validation
// records.  The audits run concurrently; one that panics is recorded as a
// failed validation instead of aborting the run.
func (s *LotService) RunQC(ctx context.Context, batchID uint64, actor model.Actor) (*QCResult, error) {
	if actor.Name == "" {
		actor.Name = model.SystemActor.Name
	}
	log := zerolog.Ctx(ctx).With().Uint64("batch_id", batchID).Str("validated_by", actor.Name).Logger()

	b, err := s.store.BatchByID(ctx, batchID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !lot.CanAudit(lot.BatchStatus(b.Status)) {
		return nil, ErrInvalidTransition
	}
	stored, err := s.store.CouponsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ActivePrizeConfigs(ctx)
	if err != nil {
		return nil, err
	}
	coupons := make([]lot.Coupon, 0, len(stored))
	for _, c := range stored {
		coupons = append(coupons, c.Lot())
	}
	configs := model.LotPrizeConfigs(rows)

	var distribution, box, consecutive lot.Outcome
	g, _ := errgroup.WithContext(ctx)
	g.Go(audit(lot.DistributionCheck, func() { distribution = lot.AuditDistribution(coupons, configs) }))
	g.Go(audit(lot.BoxComposition, func() { box = lot.AuditBoxComposition(coupons, configs) }))
	g.Go(audit(lot.ConsecutiveCheck, func() { consecutive = lot.AuditConsecutive(coupons) }))
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("audit aborted")
	}

	rep := s.reporter.Report(b.LotBatch(len(coupons)), actor.Name, distribution, box, consecutive)
	saved, err := s.store.SaveValidations(ctx, b.ID, rep, actor)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	results := make(map[string]string, len(rep.Validations))
	for _, v := range rep.Validations {
		metrics.ObserveAudit(string(v.Type), string(v.Status))
		results[string(v.Type)] = string(v.Status)
	}
	metrics.ObserveQCRun(string(rep.Status))
	log.Info().Str("status", string(rep.Status)).Interface("results", results).Msg("qc run recorded")

	if s.events != nil {
		ev := queue.QCCompletedEvent{
			EventID:     queue.NewEventID(),
			BatchID:     b.ID,
			BatchNumber: b.Number,
			Status:      string(rep.Status),
			Results:     results,
			ValidatedBy: actor.Name,
			OccurredAt:  queue.Timestamp(s.now()),
		}
		if err := s.events.PublishQCCompleted(ctx, ev); err != nil {
			log.Warn().Err(err).Msg("qc.completed not published")
		}
	}

	out := &QCResult{Batch: *b, Status: rep.Status, Passed: rep.Passed, Validations: saved}
	out.Batch.Status = string(rep.Status)
	return out, nil
}

// audit turns a panic inside one audit pass into an error so the other
// passes still complete and the run is still recorded.
func audit(t lot.ValidationType, run func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: panic: %v", t, r)
			}
		}()
		run()
		return nil
	}
}

// ProductionReport builds the per-box coupon listing of a batch.
func (s *LotService) ProductionReport(ctx context.Context, number uint64) (*report.ProductionReport, error) {
	b, err := s.store.BatchByNumber(ctx, number)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	coupons, err := s.store.CouponsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	r := report.Build(*b, coupons)
	return &r, nil
}

// SweepPendingQC runs QC as the system user for up to limit completed
// batches that have never been checked.  It returns how many runs were
// recorded; a failing batch is logged and skipped.
func (s *LotService) SweepPendingQC(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}
	batches, err := s.store.BatchesAwaitingQC(ctx, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, b := range batches {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.RunQC(ctx, b.ID, model.SystemActor); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Uint64("batch_id", b.ID).Msg("qc sweep: run failed")
			continue
		}
		done++
	}
	return done, nil
}
