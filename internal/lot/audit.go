package lot

import (
	"fmt"
	"sort"
)

// Outcome is the result of one audit pass.  Err is set only when the
// audit could not run; findings are never reported as errors.
type Outcome struct {
	Type     ValidationType
	Findings []Finding
	Detail   Detail
	Err      error
}

// Passed reports whether the audit ran and found nothing.
func (o Outcome) Passed() bool { return o.Err == nil && len(o.Findings) == 0 }

func failedOutcome(t ValidationType, err error) Outcome {
	return Outcome{Type: t, Detail: errorDetail(t, err), Err: err}
}

// orderedCoupons validates the coupon set and returns a copy sorted by
// numeric coupon number.  The Seq field of the copies is recomputed from
// Number so callers cannot smuggle in an inconsistent ordering.
func orderedCoupons(t ValidationType, coupons []Coupon) ([]Coupon, error) {
	if len(coupons) == 0 {
		return nil, &AuditInputError{Audit: t, Reason: "no coupons to audit"}
	}
	out := make([]Coupon, len(coupons))
	seen := make(map[int]string, len(coupons))
	for i, c := range coupons {
		seq, err := ParseCouponNumber(c.Number)
		if err != nil || seq <= 0 {
			return nil, &AuditInputError{Audit: t, Reason: fmt.Sprintf("malformed coupon number %q", c.Number)}
		}
		if prev, dup := seen[seq]; dup {
			return nil, &AuditInputError{Audit: t, Reason: fmt.Sprintf("coupon numbers %q and %q collide", prev, c.Number)}
		}
		if c.PrizeAmount < 0 {
			return nil, &AuditInputError{Audit: t, Reason: fmt.Sprintf("coupon %s has negative prize amount", c.Number)}
		}
		seen[seq] = c.Number
		c.Seq = seq
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// AuditDistribution compares whole-lot prize counts with the configured
// totals.  It emits one finding per amount whose count differs, including
// winning amounts that appear in the lot without being configured.
func AuditDistribution(coupons []Coupon, configs []PrizeConfig) Outcome {
	if _, err := orderedCoupons(DistributionCheck, coupons); err != nil {
		return failedOutcome(DistributionCheck, err)
	}
	table, err := NewPrizeTable(configs, 1)
	if err != nil {
		return failedOutcome(DistributionCheck, &AuditInputError{Audit: DistributionCheck, Reason: err.Error()})
	}
	expected := table.Expected()
	actual := make(map[int64]int, len(expected))
	for amount := range expected {
		actual[amount] = 0
	}
	for _, c := range coupons {
		if c.PrizeAmount > 0 {
			actual[c.PrizeAmount]++
		}
	}

	var findings []Finding
	for _, amount := range sortedAmounts(actual) {
		want := expected[amount]
		if got := actual[amount]; got != want {
			findings = append(findings, distributionFinding(amount, want, got))
		}
	}
	detail := DistributionDetail{
		Expected: expected,
		Actual:   actual,
		Issues:   descriptions(findings),
		Findings: findings,
	}
	return Outcome{Type: DistributionCheck, Findings: findings, Detail: detail}
}

// AuditBoxComposition checks that every box carries the same number of
// coupons of each amount.  An amount whose total cannot be split evenly
// across the boxes is reported once as inexact, and boxes are then held to
// the floor/ceiling of the split instead of being silently floored.
func AuditBoxComposition(coupons []Coupon, configs []PrizeConfig) Outcome {
	ordered, err := orderedCoupons(BoxComposition, coupons)
	if err != nil {
		return failedOutcome(BoxComposition, err)
	}
	perBox := 0
	for _, c := range ordered {
		if c.BoxNumber == 1 {
			perBox++
		}
	}
	table, err := NewPrizeTable(configs, perBox)
	if err != nil {
		return failedOutcome(BoxComposition, &AuditInputError{Audit: BoxComposition, Reason: err.Error()})
	}
	perBox = table.CouponsPerBox()
	if len(ordered)%perBox != 0 {
		return failedOutcome(BoxComposition, &AuditInputError{Audit: BoxComposition,
			Reason: fmt.Sprintf("%d coupons do not fill whole boxes of %d", len(ordered), perBox)})
	}
	totalBoxes := len(ordered) / perBox

	compositions := make(map[int]map[int64]int, totalBoxes)
	sizes := make(map[int]int, totalBoxes)
	for b := 1; b <= totalBoxes; b++ {
		compositions[b] = make(map[int64]int)
	}
	for _, c := range ordered {
		if c.BoxNumber < 1 || c.BoxNumber > totalBoxes {
			return failedOutcome(BoxComposition, &AuditInputError{Audit: BoxComposition,
				Reason: fmt.Sprintf("coupon %s is in box %d outside 1..%d", c.Number, c.BoxNumber, totalBoxes)})
		}
		sizes[c.BoxNumber]++
		if c.PrizeAmount > 0 {
			compositions[c.BoxNumber][c.PrizeAmount]++
		}
	}

	var findings []Finding
	winning := table.Winning()
	expectedPerBox := make(map[int64]int, len(winning))
	inexact := make(map[int64]bool)
	for _, e := range winning {
		expectedPerBox[e.Amount] = e.TotalCoupons / totalBoxes
		if e.TotalCoupons%totalBoxes != 0 {
			inexact[e.Amount] = true
			findings = append(findings, inexactFinding(e.Amount, e.TotalCoupons, totalBoxes))
		}
	}
	for b := 1; b <= totalBoxes; b++ {
		if sizes[b] != perBox {
			findings = append(findings, Finding{
				Kind:        BoxCompositionMismatch,
				BoxNumber:   b,
				Expected:    perBox,
				Actual:      sizes[b],
				Description: fmt.Sprintf("box %d holds %d coupons, expected %d", b, sizes[b], perBox),
			})
		}
		counts := compositions[b]
		for amount, want := range expectedPerBox {
			if _, ok := counts[amount]; !ok {
				counts[amount] = 0
			}
			got := counts[amount]
			if got == want || (inexact[amount] && got == want+1) {
				continue
			}
			findings = append(findings, boxFinding(b, amount, want, got))
		}
		for amount, got := range counts {
			if _, configured := expectedPerBox[amount]; !configured && got > 0 {
				findings = append(findings, boxFinding(b, amount, 0, got))
			}
		}
	}
	sortFindings(findings)
	detail := BoxCompositionDetail{
		TotalBoxes:      totalBoxes,
		ExpectedPerBox:  expectedPerBox,
		BoxCompositions: compositions,
		Issues:          descriptions(findings),
		Findings:        findings,
	}
	return Outcome{Type: BoxComposition, Findings: findings, Detail: detail}
}

// AuditConsecutive walks the lot in coupon-number order and reports every
// coupon that repeats the non-zero prize of the coupon just before it.
func AuditConsecutive(coupons []Coupon) Outcome {
	ordered, err := orderedCoupons(ConsecutiveCheck, coupons)
	if err != nil {
		return failedOutcome(ConsecutiveCheck, err)
	}
	var findings []Finding
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.PrizeAmount > 0 && cur.PrizeAmount == prev.PrizeAmount {
			findings = append(findings, consecutiveFinding(prev, cur))
		}
	}
	detail := ConsecutiveDetail{
		TotalConsecutiveIssues: len(findings),
		Issues:                 findings,
	}
	if detail.Issues == nil {
		detail.Issues = []Finding{}
	}
	return Outcome{Type: ConsecutiveCheck, Findings: findings, Detail: detail}
}

func sortedAmounts(m map[int64]int) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// sortFindings orders box findings by box, then inexact notes first, then
// by descending amount, so reports read the same on every run.
func sortFindings(f []Finding) {
	sort.SliceStable(f, func(i, j int) bool {
		if f[i].BoxNumber != f[j].BoxNumber {
			return f[i].BoxNumber < f[j].BoxNumber
		}
		return f[i].Amount > f[j].Amount
	})
}

func descriptions(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Description)
	}
	return out
}
