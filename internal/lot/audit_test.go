package lot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshLot(t *testing.T, configs []PrizeConfig) []Coupon {
	t.Helper()
	coupons, err := NewGenerator(DefaultSettings()).Generate(standardBatch(), configs)
	require.NoError(t, err)
	return coupons
}

// quietRun returns an index p such that coupons p-1..p+2 carry no prize.
func quietRun(t *testing.T, coupons []Coupon) int {
	t.Helper()
	for p := 1; p+2 < len(coupons); p++ {
		if coupons[p-1].PrizeAmount == 0 && coupons[p].PrizeAmount == 0 &&
			coupons[p+1].PrizeAmount == 0 && coupons[p+2].PrizeAmount == 0 &&
			coupons[p].BoxNumber == coupons[p+1].BoxNumber {
			return p
		}
	}
	t.Fatal("no run of empty coupons found")
	return 0
}

func TestAuditDistribution(t *testing.T) {
	configs := grandPrize(10)

	t.Run("untampered lot passes", func(t *testing.T) {
		out := AuditDistribution(freshLot(t, configs), configs)
		require.NoError(t, out.Err)
		assert.Empty(t, out.Findings)
		detail, ok := out.Detail.(DistributionDetail)
		require.True(t, ok)
		assert.Equal(t, map[int64]int{50000: 10}, detail.Expected)
		assert.Equal(t, map[int64]int{50000: 10}, detail.Actual)
	})

	t.Run("one extra winner is one finding", func(t *testing.T) {
		coupons := freshLot(t, configs)
		p := quietRun(t, coupons)
		coupons[p].PrizeAmount = 50000

		out := AuditDistribution(coupons, configs)
		require.Len(t, out.Findings, 1)
		f := out.Findings[0]
		assert.Equal(t, DistributionMismatch, f.Kind)
		assert.Equal(t, int64(50000), f.Amount)
		assert.Equal(t, 10, f.Expected)
		assert.Equal(t, 11, f.Actual)
		assert.False(t, out.Passed())
	})

	t.Run("moving a winner between tiers flags both tiers", func(t *testing.T) {
		tiered := tieredPrizes()
		coupons := freshLot(t, tiered)
		for i := range coupons {
			if coupons[i].PrizeAmount == 50000 {
				coupons[i].PrizeAmount = 10000
				break
			}
		}
		out := AuditDistribution(coupons, tiered)
		require.Len(t, out.Findings, 2)
		assert.Equal(t, int64(50000), out.Findings[0].Amount)
		assert.Equal(t, 9, out.Findings[0].Actual)
		assert.Equal(t, int64(10000), out.Findings[1].Amount)
		assert.Equal(t, 101, out.Findings[1].Actual)
	})

	t.Run("unconfigured amount is reported", func(t *testing.T) {
		coupons := freshLot(t, configs)
		coupons[quietRun(t, coupons)].PrizeAmount = 777
		out := AuditDistribution(coupons, configs)
		require.Len(t, out.Findings, 1)
		assert.Equal(t, int64(777), out.Findings[0].Amount)
		assert.Zero(t, out.Findings[0].Expected)
	})

	t.Run("empty input is an audit input error", func(t *testing.T) {
		out := AuditDistribution(nil, configs)
		require.Error(t, out.Err)
		assert.ErrorIs(t, out.Err, ErrAuditInput)
		assert.False(t, out.Passed())
		assert.NotEmpty(t, out.Detail.(DistributionDetail).Message)
	})
}

func TestAuditBoxComposition(t *testing.T) {
	configs := grandPrize(10)

	t.Run("untampered lot passes", func(t *testing.T) {
		out := AuditBoxComposition(freshLot(t, configs), configs)
		require.NoError(t, out.Err)
		assert.Empty(t, out.Findings)
		detail := out.Detail.(BoxCompositionDetail)
		assert.Equal(t, 10, detail.TotalBoxes)
		assert.Equal(t, map[int64]int{50000: 1}, detail.ExpectedPerBox)
		for box := 1; box <= 10; box++ {
			assert.Equal(t, 1, detail.BoxCompositions[box][50000], "box %d", box)
		}
	})

	t.Run("winner moved to another box", func(t *testing.T) {
		coupons := freshLot(t, configs)
		for i := range coupons {
			if coupons[i].BoxNumber == 1 && coupons[i].IsWinner {
				coupons[i].PrizeAmount = 0
				coupons[i].IsWinner = false
				break
			}
		}
		for i := range coupons {
			if coupons[i].BoxNumber == 2 && !coupons[i].IsWinner {
				coupons[i].PrizeAmount = 50000
				coupons[i].IsWinner = true
				break
			}
		}

		assert.True(t, AuditDistribution(coupons, configs).Passed(), "whole-lot counts still match")

		out := AuditBoxComposition(coupons, configs)
		require.NoError(t, out.Err)
		require.Len(t, out.Findings, 2)
		assert.Equal(t, 1, out.Findings[0].BoxNumber)
		assert.Equal(t, 0, out.Findings[0].Actual)
		assert.Equal(t, 2, out.Findings[1].BoxNumber)
		assert.Equal(t, 2, out.Findings[1].Actual)
		for _, f := range out.Findings {
			assert.Equal(t, BoxCompositionMismatch, f.Kind)
			assert.Equal(t, 1, f.Expected)
		}

		raw, err := json.Marshal(out.Findings[0])
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		assert.Equal(t, float64(0), fields["actual"])
		assert.Equal(t, float64(1), fields["expected"])
		assert.Equal(t, float64(1), fields["box_number"])
	})

	t.Run("box numbers outside the lot", func(t *testing.T) {
		coupons := freshLot(t, configs)
		coupons[0].BoxNumber = 11
		out := AuditBoxComposition(coupons, configs)
		assert.ErrorIs(t, out.Err, ErrAuditInput)
	})

	t.Run("partial box", func(t *testing.T) {
		coupons := freshLot(t, configs)
		out := AuditBoxComposition(coupons[:9999], configs)
		assert.ErrorIs(t, out.Err, ErrAuditInput)
	})
}

func TestFindingJSONKeepsZeroCounts(t *testing.T) {
	raw, err := json.Marshal(distributionFinding(50000, 10, 0))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"actual":0`)
	assert.Contains(t, string(raw), `"expected":10`)
	assert.NotContains(t, string(raw), `"box_number"`)

	raw, err = json.Marshal(consecutiveFinding(
		Coupon{Number: "00001", PrizeAmount: 50000},
		Coupon{Number: "00002", PrizeAmount: 50000},
	))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"actual"`)
	assert.Contains(t, string(raw), `"coupon_number":"00002"`)
}

func TestAuditConsecutive(t *testing.T) {
	configs := grandPrize(10)

	t.Run("untampered lot passes", func(t *testing.T) {
		out := AuditConsecutive(freshLot(t, configs))
		require.NoError(t, out.Err)
		assert.Empty(t, out.Findings)
		detail := out.Detail.(ConsecutiveDetail)
		assert.Zero(t, detail.TotalConsecutiveIssues)
		assert.NotNil(t, detail.Issues)
	})

	t.Run("forced adjacent duplicate", func(t *testing.T) {
		coupons := freshLot(t, configs)
		p := quietRun(t, coupons)
		coupons[p].PrizeAmount = 50000
		coupons[p+1].PrizeAmount = 50000

		out := AuditConsecutive(coupons)
		require.Len(t, out.Findings, 1)
		f := out.Findings[0]
		assert.Equal(t, ConsecutiveDuplicate, f.Kind)
		assert.Equal(t, coupons[p+1].Number, f.CouponNumber)
		assert.Equal(t, coupons[p].Number, f.PreviousCoupon)
		assert.Equal(t, 1, out.Detail.(ConsecutiveDetail).TotalConsecutiveIssues)
	})

	t.Run("adjacent empty coupons are fine", func(t *testing.T) {
		out := AuditConsecutive(freshLot(t, nil))
		require.NoError(t, out.Err)
		assert.Empty(t, out.Findings)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		coupons := []Coupon{
			{Number: "00004", PrizeAmount: 0},
			{Number: "00002", PrizeAmount: 1000},
			{Number: "00003", PrizeAmount: 1000},
			{Number: "00001", PrizeAmount: 0},
		}
		out := AuditConsecutive(coupons)
		require.Len(t, out.Findings, 1)
		assert.Equal(t, "00003", out.Findings[0].CouponNumber)
		assert.Equal(t, "00002", out.Findings[0].PreviousCoupon)
	})

	t.Run("malformed numbers", func(t *testing.T) {
		out := AuditConsecutive([]Coupon{{Number: "A1"}, {Number: "00002"}})
		assert.ErrorIs(t, out.Err, ErrAuditInput)

		out = AuditConsecutive([]Coupon{{Number: "00002"}, {Number: "2"}})
		assert.ErrorIs(t, out.Err, ErrAuditInput)
	})
}

func TestUnmarshalDetail(t *testing.T) {
	out := AuditBoxComposition(freshLot(t, grandPrize(15)), grandPrize(15))
	raw, err := MarshalDetail(out.Detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"expected_per_box":{"50000":1}`)

	back, err := UnmarshalDetail(BoxComposition, raw)
	require.NoError(t, err)
	detail, ok := back.(BoxCompositionDetail)
	require.True(t, ok)
	assert.Equal(t, out.Detail.(BoxCompositionDetail).BoxCompositions, detail.BoxCompositions)
	assert.Len(t, detail.FindingList(), 1)

	_, err = UnmarshalDetail("price_check", raw)
	assert.Error(t, err)
}
