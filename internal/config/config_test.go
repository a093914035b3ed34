package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

func TestLoadLotSettings(t *testing.T) {
	assert.Equal(t, lot.DefaultSettings(), LoadLotSettings())

	t.Setenv("LOT_COUPONS_PER_BOX", "500")
	t.Setenv("LOT_TOTAL_BOXES", "20")
	t.Setenv("LOT_NUMBER_WIDTH", "-3")
	t.Setenv("LOT_MAX_SIZE", "50000")
	s := LoadLotSettings()
	assert.Equal(t, 500, s.DefaultCouponsPerBox)
	assert.Equal(t, 20, s.DefaultTotalBoxes)
	assert.Equal(t, 5, s.NumberWidth)
	assert.Equal(t, 50000, s.MaxLotSize)

	t.Setenv("LOT_MAX_SIZE", "0")
	assert.Equal(t, lot.DefaultSettings().MaxLotSize, LoadLotSettings().MaxLotSize)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "2")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2500*time.Millisecond, cfg.TTL)
	assert.InDelta(t, 4.0, cfg.PerSecond(), 1e-9)

	t.Setenv("RATE_LIMIT_BURST", "15")
	assert.Equal(t, 15, LoadRateLimitConfig().Capacity)
}

func TestLoadQueueConfig(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://qc@broker:5672/")
	t.Setenv("AUTO_QC_ON_GENERATE", "yes")
	cfg := LoadQueueConfig()
	assert.Equal(t, "amqp://qc@broker:5672/", cfg.URL)
	assert.Equal(t, "coupons.generated", cfg.GeneratedQueue)
	assert.True(t, cfg.AutoQC)
}

func TestParsePrizeSeed(t *testing.T) {
	doc := []byte(`
coupons_per_box: 1000
prizes:
  - amount: 50000
    total_coupons: 10
  - amount: 10000
    total_coupons: 100
    description: Voucher 10rb
  - amount: 100000
    total_coupons: 5
    inactive: true
`)
	configs, err := ParsePrizeSeed(doc, 1000)
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, int64(50000), configs[0].Amount)
	assert.Equal(t, 1000, configs[0].CouponsPerBox)
	assert.True(t, configs[0].IsActive)
	assert.Equal(t, "Voucher 10rb", configs[1].Description)
	assert.False(t, configs[2].IsActive)
}

func TestParsePrizeSeedRejectsInvalidTable(t *testing.T) {
	doc := []byte(`
prizes:
  - amount: 50000
    total_coupons: 10
  - amount: 50000
    total_coupons: 20
`)
	_, err := ParsePrizeSeed(doc, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, lot.ErrConfig)

	_, err = ParsePrizeSeed([]byte("prizes: [oops"), 1000)
	assert.Error(t, err)
}

func TestLoadPrizeSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prizes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prizes:\n  - amount: 5000\n    total_coupons: 30\n"), 0o600))
	configs, err := LoadPrizeSeed(path, 1000)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 30, configs[0].TotalCoupons)

	_, err = LoadPrizeSeed(filepath.Join(t.TempDir(), "missing.yaml"), 1000)
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COUPONQC_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("COUPONQC_TEST_VALUE", "")
	os.Unsetenv("COUPONQC_TEST_VALUE")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("COUPONQC_TEST_VALUE"))
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "absent.env")))
}
