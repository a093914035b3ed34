package lot

import (
	"math/rand/v2"
)

// seedMix decorrelates the two PCG seed words derived from a batch number.
const seedMix = 0x9e3779b97f4a7c15

// Generator turns a batch and its prize table into an ordered lot.  It
// holds no mutable state and may be shared between goroutines.
type Generator struct {
	settings Settings
}

// NewGenerator returns a Generator using the given geometry defaults.
func NewGenerator(settings Settings) *Generator {
	if settings.DefaultCouponsPerBox <= 0 {
		settings.DefaultCouponsPerBox = DefaultSettings().DefaultCouponsPerBox
	}
	if settings.NumberWidth <= 0 {
		settings.NumberWidth = DefaultSettings().NumberWidth
	}
	if settings.MaxLotSize <= 0 {
		settings.MaxLotSize = DefaultSettings().MaxLotSize
	}
	return &Generator{settings: settings}
}

// Settings returns the generator's geometry defaults.
func (g *Generator) Settings() Settings { return g.settings }

// Generate builds the full lot for b.  The same batch number and configs
// always produce the same lot.  Prize coupons are split evenly across
// boxes (remainders go to boxes picked by the seeded generator), each box
// is shuffled independently, and adjacent equal prizes are spread apart
// where the box leaves room to do so.
func (g *Generator) Generate(b Batch, configs []PrizeConfig) ([]Coupon, error) {
	if b.ExistingCoupons > 0 {
		return nil, &AlreadyGeneratedError{BatchID: b.ID, Existing: b.ExistingCoupons}
	}
	if b.TotalBoxes <= 0 {
		return nil, configErrorf("batch %d has non-positive total_boxes %d", b.Number, b.TotalBoxes)
	}
	table, err := NewPrizeTable(configs, g.settings.DefaultCouponsPerBox)
	if err != nil {
		return nil, err
	}
	perBox := table.CouponsPerBox()
	if b.TotalBoxes > g.settings.MaxLotSize/perBox {
		return nil, configErrorf("batch %d: %d boxes of %d exceeds the lot limit of %d coupons",
			b.Number, b.TotalBoxes, perBox, g.settings.MaxLotSize)
	}
	lotSize := b.TotalBoxes * perBox
	if claimed := table.ClaimedCoupons(); claimed > lotSize {
		return nil, configErrorf("prize table claims %d coupons but the lot holds %d (%d boxes of %d)",
			claimed, lotSize, b.TotalBoxes, perBox)
	}

	rng := rand.New(rand.NewPCG(b.Number, b.Number^seedMix))
	plan, err := planBoxes(table, b.TotalBoxes, rng)
	if err != nil {
		return nil, err
	}

	amounts := make([]int64, 0, lotSize)
	for _, box := range plan {
		for len(box) < perBox {
			box = append(box, 0)
		}
		rng.Shuffle(len(box), func(i, j int) { box[i], box[j] = box[j], box[i] })
		amounts = append(amounts, box...)
	}
	spreadAdjacent(amounts, perBox)

	width := NumberWidth(g.settings.NumberWidth, lotSize)
	coupons := make([]Coupon, lotSize)
	for i, amount := range amounts {
		seq := i + 1
		coupons[i] = Coupon{
			Number:           FormatCouponNumber(seq, width),
			Seq:              seq,
			BoxNumber:        BoxOf(seq, perBox),
			BatchID:          b.ID,
			PrizeAmount:      amount,
			PrizeDescription: table.Description(amount),
			IsWinner:         amount > 0,
		}
	}
	return coupons, nil
}

// planBoxes assigns every winning coupon to a box.  Each box gets
// total/boxes coupons of an amount; the remainders are dealt round-robin
// over one seeded permutation of the boxes so no box collects all of them.
func planBoxes(table PrizeTable, boxes int, rng *rand.Rand) ([][]int64, error) {
	perBox := table.CouponsPerBox()
	plan := make([][]int64, boxes)
	for i := range plan {
		plan[i] = make([]int64, 0, perBox)
	}
	order := rng.Perm(boxes)
	cursor := 0
	for _, e := range table.Winning() {
		base := e.TotalCoupons / boxes
		rem := e.TotalCoupons % boxes
		for i := range plan {
			for k := 0; k < base; k++ {
				plan[i] = append(plan[i], e.Amount)
			}
		}
		for k := 0; k < rem; k++ {
			box := order[cursor%boxes]
			cursor++
			plan[box] = append(plan[box], e.Amount)
		}
	}
	for i, box := range plan {
		if len(box) > perBox {
			return nil, configErrorf("box %d needs %d prize coupons but holds only %d", i+1, len(box), perBox)
		}
	}
	return plan, nil
}

// spreadAdjacent swaps coupons within a box so that no two neighbours
// share the same non-zero amount.  A collision is left in place only when
// the box has no slot that can absorb it; the consecutive audit reports
// those.
func spreadAdjacent(a []int64, perBox int) {
	for i := 1; i < len(a); i++ {
		if a[i] == 0 || a[i] != a[i-1] {
			continue
		}
		start := (BoxOf(i+1, perBox) - 1) * perBox
		end := start + perBox
		if end > len(a) {
			end = len(a)
		}
		if j := swapTarget(a, i, start, end); j >= 0 {
			a[i], a[j] = a[j], a[i]
		}
	}
}

// swapTarget finds a slot in [start,end) whose value can trade places with
// a[i] without creating a new collision at either end of the swap.
func swapTarget(a []int64, i, start, end int) int {
	try := func(j int) bool {
		if j == i || j == i-1 || a[j] == a[i] {
			return false
		}
		a[i], a[j] = a[j], a[i]
		ok := !collides(a, i) && !collides(a, j)
		a[i], a[j] = a[j], a[i]
		return ok
	}
	for j := i + 1; j < end; j++ {
		if try(j) {
			return j
		}
	}
	for j := start; j < i-1; j++ {
		if try(j) {
			return j
		}
	}
	return -1
}

func collides(a []int64, k int) bool {
	if a[k] == 0 {
		return false
	}
	return (k > 0 && a[k-1] == a[k]) || (k+1 < len(a) && a[k+1] == a[k])
}
