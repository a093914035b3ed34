package lot

import (
	"encoding/json"
	"fmt"
)

// ValidationType names one of the three audits.
type ValidationType string

const (
	DistributionCheck ValidationType = "distribution_check"
	BoxComposition    ValidationType = "box_composition"
	ConsecutiveCheck  ValidationType = "consecutive_check"
)

// Valid reports whether t names a known audit.
func (t ValidationType) Valid() bool {
	switch t {
	case DistributionCheck, BoxComposition, ConsecutiveCheck:
		return true
	}
	return false
}

// FindingKind classifies a finding.
type FindingKind string

const (
	DistributionMismatch   FindingKind = "distribution_mismatch"
	BoxCompositionMismatch FindingKind = "box_composition_mismatch"
	ConsecutiveDuplicate   FindingKind = "consecutive_duplicate"
)

// Finding is one audit failure with enough context to render it without
// looking at the lot again.  Which fields are meaningful depends on Kind:
// distribution findings use Amount/Expected/Actual, box findings add
// BoxNumber (0 with Inexact set for a split that cannot be uniform), and
// consecutive findings use CouponNumber/PreviousCoupon/Amount.
type Finding struct {
	Kind           FindingKind `json:"kind"`
	Amount         int64       `json:"prize_amount"`
	Expected       int         `json:"expected,omitempty"`
	Actual         int         `json:"actual,omitempty"`
	BoxNumber      int         `json:"box_number,omitempty"`
	Inexact        bool        `json:"inexact,omitempty"`
	CouponNumber   string      `json:"coupon_number,omitempty"`
	PreviousCoupon string      `json:"previous_coupon,omitempty"`
	Description    string      `json:"description"`
}

// MarshalJSON always emits expected and actual for distribution and box
// findings, where zero is a meaningful count.
func (f Finding) MarshalJSON() ([]byte, error) {
	type plain Finding
	if f.Kind == ConsecutiveDuplicate {
		return json.Marshal(plain(f))
	}
	return json.Marshal(struct {
		plain
		Expected int `json:"expected"`
		Actual   int `json:"actual"`
	}{plain(f), f.Expected, f.Actual})
}

func distributionFinding(amount int64, expected, actual int) Finding {
	return Finding{
		Kind:     DistributionMismatch,
		Amount:   amount,
		Expected: expected,
		Actual:   actual,
		Description: fmt.Sprintf("Rp %s: %d coupons, expected %d",
			FormatAmount(amount), actual, expected),
	}
}

func boxFinding(box int, amount int64, expected, actual int) Finding {
	return Finding{
		Kind:      BoxCompositionMismatch,
		Amount:    amount,
		Expected:  expected,
		Actual:    actual,
		BoxNumber: box,
		Description: fmt.Sprintf("box %d: Rp %s has %d coupons, expected %d",
			box, FormatAmount(amount), actual, expected),
	}
}

func inexactFinding(amount int64, total, boxes int) Finding {
	return Finding{
		Kind:     BoxCompositionMismatch,
		Amount:   amount,
		Expected: total / boxes,
		Actual:   total,
		Inexact:  true,
		Description: fmt.Sprintf("Rp %s: %d coupons cannot be split evenly across %d boxes",
			FormatAmount(amount), total, boxes),
	}
}

func consecutiveFinding(prev, cur Coupon) Finding {
	return Finding{
		Kind:           ConsecutiveDuplicate,
		Amount:         cur.PrizeAmount,
		CouponNumber:   cur.Number,
		PreviousCoupon: prev.Number,
		Description: fmt.Sprintf("coupon %s repeats the Rp %s prize of coupon %s",
			cur.Number, FormatAmount(cur.PrizeAmount), prev.Number),
	}
}
