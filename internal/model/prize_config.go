package model

import (
	"time"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

// PrizeConfig mirrors a row of the `prize_config` table.
type PrizeConfig struct {
	ID            uint64    `json:"config_id"`
	PrizeAmount   int64     `json:"prize_amount"`
	TotalCoupons  int       `json:"total_coupons"`
	CouponsPerBox int       `json:"coupons_per_box"`
	IsActive      bool      `json:"is_active"`
	Description   string    `json:"prize_description,omitempty"`
	CreatedBy     *uint64   `json:"created_by,omitempty"`
	UpdatedBy     *uint64   `json:"updated_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Lot returns the generator's view of the row.
func (p PrizeConfig) Lot() lot.PrizeConfig {
	return lot.PrizeConfig{
		ID:            p.ID,
		Amount:        p.PrizeAmount,
		TotalCoupons:  p.TotalCoupons,
		CouponsPerBox: p.CouponsPerBox,
		IsActive:      p.IsActive,
		Description:   p.Description,
	}
}

// LotPrizeConfigs converts a slice of rows.
func LotPrizeConfigs(rows []PrizeConfig) []lot.PrizeConfig {
	out := make([]lot.PrizeConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Lot())
	}
	return out
}
