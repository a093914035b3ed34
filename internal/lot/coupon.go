package lot

import (
	"strconv"
	"strings"
)

// Batch is the part of a production batch the generator needs.
type Batch struct {
	ID              uint64
	Number          uint64
	TotalBoxes      int
	ExistingCoupons int
}

// Coupon is a single generated coupon.  Seq is the numeric value of
// Number and is the coupon's 1-based position in the lot.
type Coupon struct {
	Number           string
	Seq              int
	BoxNumber        int
	BatchID          uint64
	PrizeAmount      int64
	PrizeDescription string
	IsWinner         bool
}

// FormatCouponNumber zero-pads seq to width digits.
func FormatCouponNumber(seq, width int) string {
	s := strconv.Itoa(seq)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ParseCouponNumber returns the numeric value of a coupon number.
func ParseCouponNumber(number string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// NumberWidth returns the width used for a lot of lotSize coupons: the
// configured minimum, widened when the lot needs more digits.
func NumberWidth(minWidth, lotSize int) int {
	w := len(strconv.Itoa(lotSize))
	if minWidth > w {
		return minWidth
	}
	return w
}

// BoxOf returns the 1-based box holding sequence number seq.
func BoxOf(seq, couponsPerBox int) int {
	return (seq + couponsPerBox - 1) / couponsPerBox
}
