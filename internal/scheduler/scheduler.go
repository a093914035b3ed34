// Package scheduler runs the periodic maintenance jobs: purging expired
// refresh tokens and sweeping completed batches that were never audited.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
	"github.com/iliyamo/coupon-lot-qc/internal/metrics"
)

// Job names used in logs and metrics.
const (
	JobTokenPurge = "token_purge"
	JobQCSweep    = "qc_sweep"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 10 * time.Minute

// TokenPurger deletes refresh tokens that expired or were revoked before cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// QCSweeper audits completed batches without a QC record.
type QCSweeper interface {
	SweepPendingQC(ctx context.Context, limit int) (int, error)
}

// Scheduler wraps a cron instance.  Runs of the same job never overlap.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	now  func() time.Time
	ctx  context.Context
}

// New registers the jobs enabled in cfg.  A nil dependency disables its
// job.  Jobs run with ctx as parent, so cancelling it aborts runs in flight.
func New(ctx context.Context, cfg config.SchedulerConfig, tokens TokenPurger, sweeper QCSweeper, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
		ctx:  ctx,
	}
	if !cfg.Enabled {
		return s, nil
	}
	if tokens != nil && cfg.TokenPurgeSpec != "" {
		if _, err := s.cron.AddFunc(cfg.TokenPurgeSpec, func() { s.run(JobTokenPurge, s.purgeTokens(tokens)) }); err != nil {
			return nil, err
		}
	}
	if sweeper != nil && cfg.QCSweepSpec != "" {
		size := cfg.QCSweepBatchSize
		if _, err := s.cron.AddFunc(cfg.QCSweepSpec, func() { s.run(JobQCSweep, s.sweepQC(sweeper, size)) }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	if s.Jobs() == 0 {
		return
	}
	s.cron.Start()
	s.log.Info().Int("jobs", s.Jobs()).Msg("scheduler started")
}

// Stop prevents new runs and waits for the running ones to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// run executes one job with a timeout and records its outcome.
func (s *Scheduler) run(name string, job func(ctx context.Context) (*zerolog.Event, error)) {
	log := s.log.With().Str("job", name).Logger()
	ctx, cancel := context.WithTimeout(log.WithContext(s.ctx), jobTimeout)
	defer cancel()

	start := time.Now()
	fields, err := job(ctx)
	metrics.ObserveJob(name, err == nil)
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Info().Dict("result", fields).Dur("took", time.Since(start)).Msg("job done")
}

func (s *Scheduler) purgeTokens(tokens TokenPurger) func(ctx context.Context) (*zerolog.Event, error) {
	return func(ctx context.Context) (*zerolog.Event, error) {
		n, err := tokens.PurgeExpired(ctx, s.now())
		return zerolog.Dict().Int64("purged", n), err
	}
}

func (s *Scheduler) sweepQC(sweeper QCSweeper, size int) func(ctx context.Context) (*zerolog.Event, error) {
	return func(ctx context.Context) (*zerolog.Event, error) {
		n, err := sweeper.SweepPendingQC(ctx, size)
		return zerolog.Dict().Int("audited", n), err
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
