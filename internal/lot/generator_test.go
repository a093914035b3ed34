package lot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grandPrize(total int) []PrizeConfig {
	return []PrizeConfig{{ID: 1, Amount: 50000, TotalCoupons: total, CouponsPerBox: 1000, IsActive: true}}
}

func tieredPrizes() []PrizeConfig {
	return []PrizeConfig{
		{ID: 1, Amount: 50000, TotalCoupons: 10, CouponsPerBox: 1000, IsActive: true},
		{ID: 2, Amount: 10000, TotalCoupons: 100, CouponsPerBox: 1000, IsActive: true},
		{ID: 3, Amount: 5000, TotalCoupons: 1000, CouponsPerBox: 1000, IsActive: true, Description: "Voucher 5rb"},
		{ID: 4, Amount: 100000, TotalCoupons: 5, CouponsPerBox: 1000, IsActive: false},
	}
}

func standardBatch() Batch {
	return Batch{ID: 7, Number: 20240001, TotalBoxes: 10}
}

func TestGenerate_NumbersAreContiguous(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	coupons, err := g.Generate(standardBatch(), grandPrize(10))
	require.NoError(t, err)
	require.Len(t, coupons, 10000)

	seen := make(map[string]bool, len(coupons))
	for i, c := range coupons {
		assert.Equal(t, i+1, c.Seq)
		assert.Equal(t, FormatCouponNumber(i+1, 5), c.Number)
		assert.False(t, seen[c.Number], "duplicate coupon number %s", c.Number)
		seen[c.Number] = true
		assert.Equal(t, uint64(7), c.BatchID)
	}
	assert.Equal(t, "00001", coupons[0].Number)
	assert.Equal(t, "10000", coupons[len(coupons)-1].Number)
}

func TestGenerate_BoxesAreMonotonicAndFull(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	coupons, err := g.Generate(standardBatch(), tieredPrizes())
	require.NoError(t, err)

	perBox := map[int]int{}
	last := 1
	for _, c := range coupons {
		require.GreaterOrEqual(t, c.BoxNumber, last)
		last = c.BoxNumber
		perBox[c.BoxNumber]++
		assert.Equal(t, c.BoxNumber, BoxOf(c.Seq, 1000))
		assert.True(t, c.Seq > (c.BoxNumber-1)*1000 && c.Seq <= c.BoxNumber*1000)
	}
	require.Len(t, perBox, 10)
	for box, n := range perBox {
		assert.Equal(t, 1000, n, "box %d", box)
	}
}

func TestGenerate_IsDeterministic(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	first, err := g.Generate(standardBatch(), tieredPrizes())
	require.NoError(t, err)
	second, err := g.Generate(standardBatch(), tieredPrizes())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reversed := tieredPrizes()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	third, err := g.Generate(standardBatch(), reversed)
	require.NoError(t, err)
	assert.Equal(t, first, third, "config order must not change the lot")

	other := standardBatch()
	other.Number++
	fourth, err := g.Generate(other, tieredPrizes())
	require.NoError(t, err)
	assert.NotEqual(t, amountsOf(first), amountsOf(fourth))
}

func TestGenerate_SingleGrandPrizeScenario(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	configs := grandPrize(10)
	coupons, err := g.Generate(standardBatch(), configs)
	require.NoError(t, err)
	require.Len(t, coupons, 10000)

	winnersPerBox := map[int]int{}
	winners := 0
	for _, c := range coupons {
		if c.PrizeAmount == 50000 {
			winners++
			winnersPerBox[c.BoxNumber]++
			assert.True(t, c.IsWinner)
			assert.Equal(t, "Rp 50.000", c.PrizeDescription)
		} else {
			assert.Zero(t, c.PrizeAmount)
			assert.False(t, c.IsWinner)
			assert.Empty(t, c.PrizeDescription)
		}
	}
	assert.Equal(t, 10, winners)
	for box := 1; box <= 10; box++ {
		assert.Equal(t, 1, winnersPerBox[box], "box %d", box)
	}

	assert.True(t, AuditDistribution(coupons, configs).Passed())
	assert.True(t, AuditBoxComposition(coupons, configs).Passed())
	assert.True(t, AuditConsecutive(coupons).Passed())
}

func TestGenerate_TieredTablePassesAllAudits(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	configs := tieredPrizes()
	for n := uint64(1); n <= 5; n++ {
		b := standardBatch()
		b.Number = n
		coupons, err := g.Generate(b, configs)
		require.NoError(t, err)

		counts := map[int64]int{}
		for _, c := range coupons {
			counts[c.PrizeAmount]++
			if c.PrizeAmount == 5000 {
				assert.Equal(t, "Voucher 5rb", c.PrizeDescription)
			}
		}
		assert.Equal(t, 10, counts[50000])
		assert.Equal(t, 100, counts[10000])
		assert.Equal(t, 1000, counts[5000])
		assert.Zero(t, counts[100000], "inactive configs must be ignored")

		dist := AuditDistribution(coupons, configs)
		box := AuditBoxComposition(coupons, configs)
		cons := AuditConsecutive(coupons)
		assert.True(t, dist.Passed(), "batch %d: %v", n, dist.Findings)
		assert.True(t, box.Passed(), "batch %d: %v", n, box.Findings)
		assert.True(t, cons.Passed(), "batch %d: %v", n, cons.Findings)
	}
}

func TestGenerate_UnevenSplitIsFlaggedNotFloored(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	configs := grandPrize(15)
	coupons, err := g.Generate(standardBatch(), configs)
	require.NoError(t, err)

	winners := 0
	for _, c := range coupons {
		if c.IsWinner {
			winners++
		}
	}
	assert.Equal(t, 15, winners)
	assert.True(t, AuditDistribution(coupons, configs).Passed())

	box := AuditBoxComposition(coupons, configs)
	require.NoError(t, box.Err)
	require.Len(t, box.Findings, 1)
	assert.True(t, box.Findings[0].Inexact)
	assert.Equal(t, int64(50000), box.Findings[0].Amount)
	assert.Equal(t, 15, box.Findings[0].Actual)
	assert.False(t, box.Passed())
}

func TestGenerate_ConfigErrors(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	cases := map[string][]PrizeConfig{
		"exceeds lot size": grandPrize(10001),
		"box sizes disagree": {
			{Amount: 50000, TotalCoupons: 10, CouponsPerBox: 1000, IsActive: true},
			{Amount: 10000, TotalCoupons: 10, CouponsPerBox: 500, IsActive: true},
		},
		"duplicate amount": {
			{Amount: 50000, TotalCoupons: 10, CouponsPerBox: 1000, IsActive: true},
			{Amount: 50000, TotalCoupons: 20, CouponsPerBox: 1000, IsActive: true},
		},
		"negative amount": {{Amount: -1, TotalCoupons: 10, CouponsPerBox: 1000, IsActive: true}},
		"zero total":      {{Amount: 1000, TotalCoupons: 0, CouponsPerBox: 1000, IsActive: true}},
	}
	for name, configs := range cases {
		t.Run(name, func(t *testing.T) {
			coupons, err := g.Generate(standardBatch(), configs)
			require.Error(t, err)
			assert.Nil(t, coupons)
			assert.True(t, errors.Is(err, ErrConfig))
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}

	t.Run("no boxes", func(t *testing.T) {
		b := standardBatch()
		b.TotalBoxes = 0
		_, err := g.Generate(b, grandPrize(10))
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("lot larger than the limit", func(t *testing.T) {
		small := NewGenerator(Settings{DefaultCouponsPerBox: 1})
		coupons, err := small.Generate(Batch{ID: 1, Number: 1, TotalBoxes: 1 << 60}, nil)
		assert.Nil(t, coupons)
		assert.ErrorIs(t, err, ErrConfig)

		capped := NewGenerator(Settings{MaxLotSize: 9999})
		_, err = capped.Generate(standardBatch(), grandPrize(10))
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("inactive configs do not count", func(t *testing.T) {
		configs := append(grandPrize(10), PrizeConfig{Amount: 1, TotalCoupons: 50000, CouponsPerBox: 7, IsActive: false})
		_, err := g.Generate(standardBatch(), configs)
		assert.NoError(t, err)
	})
}

func TestGenerate_RejectsBatchWithCoupons(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	b := standardBatch()
	b.ExistingCoupons = 10000
	_, err := g.Generate(b, grandPrize(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
	var already *AlreadyGeneratedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, uint64(7), already.BatchID)
	assert.Equal(t, 10000, already.Existing)
}

func TestGenerate_UsesInjectedGeometry(t *testing.T) {
	g := NewGenerator(Settings{DefaultCouponsPerBox: 100, DefaultTotalBoxes: 5, NumberWidth: 2})
	coupons, err := g.Generate(Batch{ID: 1, Number: 3, TotalBoxes: 5}, nil)
	require.NoError(t, err)
	require.Len(t, coupons, 500)
	assert.Equal(t, "001", coupons[0].Number)
	assert.Equal(t, "500", coupons[499].Number)
	assert.Equal(t, 5, coupons[499].BoxNumber)
	for _, c := range coupons {
		assert.False(t, c.IsWinner)
	}
}

func TestConfigWarnings(t *testing.T) {
	assert.Empty(t, ConfigWarnings(grandPrize(1000), 1000))
	assert.Empty(t, ConfigWarnings(nil, 1000))
	assert.Nil(t, ConfigWarnings(grandPrize(0), 1000), "invalid tables are reported by Generate")

	warnings := ConfigWarnings(tieredPrizes(), 1000)
	require.Len(t, warnings, 2)
	assert.Equal(t, "prize Rp 50.000: total_coupons 10 is not a multiple of coupons_per_box 1000", warnings[0])
	assert.Contains(t, warnings[1], "Rp 10.000")
}

func TestSpreadAdjacent(t *testing.T) {
	a := []int64{7, 7, 0, 0, 7, 7, 0, 0}
	spreadAdjacent(a, 4)
	for i := 1; i < len(a); i++ {
		if a[i] != 0 {
			assert.NotEqual(t, a[i-1], a[i], "index %d in %v", i, a)
		}
	}

	crowded := []int64{7, 7, 7, 0}
	spreadAdjacent(crowded, 4)
	assert.Equal(t, 3, countOf(crowded, 7))
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{0: "0", 999: "999", 1000: "1.000", 50000: "50.000", 1234567: "1.234.567", -2500: "-2.500"}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(in))
	}
}

func amountsOf(coupons []Coupon) []int64 {
	out := make([]int64, len(coupons))
	for i, c := range coupons {
		out[i] = c.PrizeAmount
	}
	return out
}

func countOf(a []int64, v int64) int {
	n := 0
	for _, x := range a {
		if x == v {
			n++
		}
	}
	return n
}
