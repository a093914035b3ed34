package config

import "github.com/iliyamo/coupon-lot-qc/internal/lot"

// LoadLotSettings reads the lot geometry from LOT_COUPONS_PER_BOX,
// LOT_TOTAL_BOXES, LOT_NUMBER_WIDTH and LOT_MAX_SIZE.  Non-positive values
// keep the production defaults.
func LoadLotSettings() lot.Settings {
	s := lot.DefaultSettings()
	if v := envInt("LOT_COUPONS_PER_BOX", 0); v > 0 {
		s.DefaultCouponsPerBox = v
	}
	if v := envInt("LOT_TOTAL_BOXES", 0); v > 0 {
		s.DefaultTotalBoxes = v
	}
	if v := envInt("LOT_NUMBER_WIDTH", 0); v > 0 {
		s.NumberWidth = v
	}
	if v := envInt("LOT_MAX_SIZE", 0); v > 0 {
		s.MaxLotSize = v
	}
	return s
}
