// Package lot builds coupon lots for production batches and audits them
// before release.  Everything here is a pure computation over in-memory
// values: callers load prize configuration and coupons from storage, hand
// them to the generator or the auditors, and persist the result.
package lot

import (
	"sort"
	"strconv"
)

// PrizeConfig is one row of the reward table: how many coupons in the lot
// carry Amount.  Amount 0 means "no prize".
type PrizeConfig struct {
	ID            uint64
	Amount        int64
	TotalCoupons  int
	CouponsPerBox int
	IsActive      bool
	Description   string
}

// Settings carries the lot geometry defaults that used to be hard-coded
// as "1 box = 1,000 coupons, 10 boxes per batch".
type Settings struct {
	DefaultCouponsPerBox int
	DefaultTotalBoxes    int
	NumberWidth          int
	// MaxLotSize caps total_boxes * coupons_per_box for a single batch.
	MaxLotSize           int
}

// DefaultSettings returns the geometry observed in production.
func DefaultSettings() Settings {
	return Settings{
		DefaultCouponsPerBox: 1000,
		DefaultTotalBoxes:    10,
		NumberWidth:          5,
		MaxLotSize:           1000000,
	}
}

// PrizeTable is the validated, immutable view of the active configs for a
// single generation or audit run.
type PrizeTable struct {
	entries       []PrizeConfig
	couponsPerBox int
}

// ActiveConfigs returns the configs with IsActive set, in input order.
func ActiveConfigs(configs []PrizeConfig) []PrizeConfig {
	out := make([]PrizeConfig, 0, len(configs))
	for _, c := range configs {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// NewPrizeTable validates the active subset of configs.  All active configs
// must agree on the box size; when none are active defaultPerBox is used.
func NewPrizeTable(configs []PrizeConfig, defaultPerBox int) (PrizeTable, error) {
	active := ActiveConfigs(configs)
	perBox := 0
	seen := make(map[int64]bool, len(active))
	for _, c := range active {
		if c.Amount < 0 {
			return PrizeTable{}, configErrorf("prize amount %d is negative", c.Amount)
		}
		if c.TotalCoupons <= 0 {
			return PrizeTable{}, configErrorf("prize amount %d has non-positive total_coupons %d", c.Amount, c.TotalCoupons)
		}
		if c.CouponsPerBox <= 0 {
			return PrizeTable{}, configErrorf("prize amount %d has non-positive coupons_per_box %d", c.Amount, c.CouponsPerBox)
		}
		if seen[c.Amount] {
			return PrizeTable{}, configErrorf("prize amount %d is configured more than once", c.Amount)
		}
		seen[c.Amount] = true
		if perBox == 0 {
			perBox = c.CouponsPerBox
		} else if perBox != c.CouponsPerBox {
			return PrizeTable{}, configErrorf("coupons_per_box disagrees across configs (%d vs %d)", perBox, c.CouponsPerBox)
		}
	}
	if perBox == 0 {
		perBox = defaultPerBox
	}
	if perBox <= 0 {
		return PrizeTable{}, configErrorf("coupons_per_box must be positive")
	}
	// Highest amounts first so allocation order does not depend on how the
	// caller happened to sort its rows.
	sort.Slice(active, func(i, j int) bool { return active[i].Amount > active[j].Amount })
	return PrizeTable{entries: active, couponsPerBox: perBox}, nil
}

// CouponsPerBox is the lot-wide box size.
func (t PrizeTable) CouponsPerBox() int { return t.couponsPerBox }

// Entries returns a copy of the active configs, highest amount first.
func (t PrizeTable) Entries() []PrizeConfig {
	out := make([]PrizeConfig, len(t.entries))
	copy(out, t.entries)
	return out
}

// Winning returns the entries with a non-zero amount.
func (t PrizeTable) Winning() []PrizeConfig {
	out := make([]PrizeConfig, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Amount > 0 {
			out = append(out, e)
		}
	}
	return out
}

// ClaimedCoupons is the number of coupons the table assigns explicitly,
// including amount-0 rows.
func (t PrizeTable) ClaimedCoupons() int {
	n := 0
	for _, e := range t.entries {
		n += e.TotalCoupons
	}
	return n
}

// Expected returns total_coupons keyed by non-zero amount.
func (t PrizeTable) Expected() map[int64]int {
	out := make(map[int64]int, len(t.entries))
	for _, e := range t.Winning() {
		out[e.Amount] = e.TotalCoupons
	}
	return out
}

// Description returns the printable label for a winning amount.
func (t PrizeTable) Description(amount int64) string {
	if amount <= 0 {
		return ""
	}
	for _, e := range t.entries {
		if e.Amount == amount && e.Description != "" {
			return e.Description
		}
	}
	return "Rp " + FormatAmount(amount)
}

// Warnings lists non-fatal problems with the table: a winning row whose
// total_coupons is not a whole number of boxes.
func (t PrizeTable) Warnings() []string {
	var out []string
	for _, e := range t.Winning() {
		if e.TotalCoupons%t.couponsPerBox != 0 {
			out = append(out, "prize Rp "+FormatAmount(e.Amount)+": total_coupons "+strconv.Itoa(e.TotalCoupons)+
				" is not a multiple of coupons_per_box "+strconv.Itoa(t.couponsPerBox))
		}
	}
	return out
}

// ConfigWarnings validates configs like NewPrizeTable and returns the
// table's warnings.  An invalid table yields none; Generate reports it.
func ConfigWarnings(configs []PrizeConfig, defaultPerBox int) []string {
	t, err := NewPrizeTable(configs, defaultPerBox)
	if err != nil {
		return nil
	}
	return t.Warnings()
}

// FormatAmount renders an amount with '.' as the thousands separator, the
// way amounts are printed on coupons and reports.  Zero renders as "0".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	if len(s) > 3 {
		buf := make([]byte, 0, len(s)+len(s)/3)
		lead := len(s) % 3
		if lead > 0 {
			buf = append(buf, s[:lead]...)
		}
		for i := lead; i < len(s); i += 3 {
			if len(buf) > 0 {
				buf = append(buf, '.')
			}
			buf = append(buf, s[i:i+3]...)
		}
		s = string(buf)
	}
	if neg {
		return "-" + s
	}
	return s
}
