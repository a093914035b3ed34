package model

import (
	"time"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

// Coupon mirrors a row of the `coupons` table.  (batch_id, coupon_number)
// is unique; the same number appears once in every batch.
type Coupon struct {
	ID               uint64    `json:"coupon_id"`
	Number           string    `json:"coupon_number"`
	PrizeAmount      int64     `json:"prize_amount"`
	PrizeDescription string    `json:"prize_description"`
	BoxNumber        int       `json:"box_number"`
	BatchID          uint64    `json:"batch_id"`
	IsWinner         bool      `json:"is_winner"`
	GeneratedAt      time.Time `json:"generated_at"`
	GeneratedBy      *uint64   `json:"generated_by,omitempty"`
}

// CouponFromLot converts a generated coupon into a row ready for insert.
func CouponFromLot(c lot.Coupon, generatedBy *uint64, at time.Time) Coupon {
	return Coupon{
		Number:           c.Number,
		PrizeAmount:      c.PrizeAmount,
		PrizeDescription: c.PrizeDescription,
		BoxNumber:        c.BoxNumber,
		BatchID:          c.BatchID,
		IsWinner:         c.IsWinner,
		GeneratedAt:      at,
		GeneratedBy:      generatedBy,
	}
}

// Lot returns the audit view of a stored coupon.
func (c Coupon) Lot() lot.Coupon {
	seq, _ := lot.ParseCouponNumber(c.Number)
	return lot.Coupon{
		Number:           c.Number,
		Seq:              seq,
		BoxNumber:        c.BoxNumber,
		BatchID:          c.BatchID,
		PrizeAmount:      c.PrizeAmount,
		PrizeDescription: c.PrizeDescription,
		IsWinner:         c.IsWinner,
	}
}
