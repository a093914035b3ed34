package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
)

type fakePurger struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePurger) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

type fakeSweeper struct {
	limit int
	n     int
	err   error
}

func (f *fakeSweeper) SweepPendingQC(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return f.n, f.err
}

func enabled() config.SchedulerConfig {
	return config.SchedulerConfig{Enabled: true, TokenPurgeSpec: "@daily", QCSweepSpec: "*/5 * * * *", QCSweepBatchSize: 7}
}

func TestNewRegistersConfiguredJobs(t *testing.T) {
	s, err := New(context.Background(), enabled(), &fakePurger{}, &fakeSweeper{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	cfg := enabled()
	cfg.QCSweepSpec = ""
	s, err = New(context.Background(), cfg, &fakePurger{}, &fakeSweeper{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	s, err = New(context.Background(), enabled(), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Jobs())
}

func TestNewDisabled(t *testing.T) {
	cfg := enabled()
	cfg.Enabled = false
	s, err := New(context.Background(), cfg, &fakePurger{}, &fakeSweeper{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Jobs())
	s.Start()
	s.Stop()
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := enabled()
	cfg.TokenPurgeSpec = "every tuesday"
	_, err := New(context.Background(), cfg, &fakePurger{}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestPurgeJobUsesClock(t *testing.T) {
	var buf bytes.Buffer
	p := &fakePurger{n: 3}
	s, err := New(context.Background(), enabled(), p, nil, zerolog.New(&buf))
	require.NoError(t, err)
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.run(JobTokenPurge, s.purgeTokens(p))
	assert.Equal(t, fixed, p.cutoff)
	assert.Contains(t, buf.String(), `"purged":3`)
	assert.Contains(t, buf.String(), "job done")
}

func TestSweepJobFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	sw := &fakeSweeper{err: errors.New("db down")}
	s, err := New(context.Background(), enabled(), nil, sw, zerolog.New(&buf))
	require.NoError(t, err)

	s.run(JobQCSweep, s.sweepQC(sw, 7))
	assert.Equal(t, 7, sw.limit)
	assert.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "db down")
}
