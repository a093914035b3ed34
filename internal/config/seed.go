package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
)

// PrizeSeed is the YAML document accepted by PRIZE_SEED_FILE:
//
//	coupons_per_box: 1000
//	prizes:
//	  - amount: 50000
//	    total_coupons: 10
//	    description: Rp 50.000
type PrizeSeed struct {
	CouponsPerBox int              `yaml:"coupons_per_box"`
	Prizes        []PrizeSeedEntry `yaml:"prizes"`
}

// PrizeSeedEntry is one prize row of the seed file.
type PrizeSeedEntry struct {
	Amount        int64  `yaml:"amount"`
	TotalCoupons  int    `yaml:"total_coupons"`
	CouponsPerBox int    `yaml:"coupons_per_box"`
	Description   string `yaml:"description"`
	Inactive      bool   `yaml:"inactive"`
}

// ParsePrizeSeed decodes and validates a seed document.  The entries must
// form a valid prize table.
func ParsePrizeSeed(data []byte, defaultPerBox int) ([]lot.PrizeConfig, error) {
	var seed PrizeSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "prize seed: decode")
	}
	perBox := seed.CouponsPerBox
	if perBox <= 0 {
		perBox = defaultPerBox
	}
	out := make([]lot.PrizeConfig, 0, len(seed.Prizes))
	for _, p := range seed.Prizes {
		box := p.CouponsPerBox
		if box <= 0 {
			box = perBox
		}
		out = append(out, lot.PrizeConfig{
			Amount:        p.Amount,
			TotalCoupons:  p.TotalCoupons,
			CouponsPerBox: box,
			IsActive:      !p.Inactive,
			Description:   p.Description,
		})
	}
	if _, err := lot.NewPrizeTable(out, perBox); err != nil {
		return nil, errors.Wrap(err, "prize seed")
	}
	return out, nil
}

// LoadPrizeSeed reads and parses the seed file at path.
func LoadPrizeSeed(path string, defaultPerBox int) ([]lot.PrizeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "prize seed: read")
	}
	return ParsePrizeSeed(data, defaultPerBox)
}
