// Package report renders the per-batch production report: the listing of
// every coupon by box that goes out with the printed lot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

// NoPrizeCaption is printed next to coupons without a prize.
const NoPrizeCaption = "Anda Belum Beruntung"

const dateLayout = "02-Jan-2006 / 15:04"

// Line is one coupon row of the report.
type Line struct {
	BoxNumber        int    `json:"box_number"`
	CouponNumber     string `json:"coupon_number"`
	PrizeAmount      int64  `json:"prize_amount"`
	PrizeDescription string `json:"prize_description"`
}

// ProductionReport is the header of a batch plus its coupons ordered by
// box, then coupon number.
type ProductionReport struct {
	BatchNumber    uint64    `json:"batch_number"`
	OperatorName   string    `json:"operator_name"`
	Location       string    `json:"location"`
	ProductionDate time.Time `json:"production_date"`
	Coupons        []Line    `json:"coupons"`
}

// Build assembles the report for b from its stored coupons.
func Build(b model.Batch, coupons []model.Coupon) ProductionReport {
	lines := make([]Line, 0, len(coupons))
	for _, c := range coupons {
		lines = append(lines, Line{
			BoxNumber:        c.BoxNumber,
			CouponNumber:     c.Number,
			PrizeAmount:      c.PrizeAmount,
			PrizeDescription: c.PrizeDescription,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].BoxNumber != lines[j].BoxNumber {
			return lines[i].BoxNumber < lines[j].BoxNumber
		}
		a, _ := lot.ParseCouponNumber(lines[i].CouponNumber)
		b, _ := lot.ParseCouponNumber(lines[j].CouponNumber)
		return a < b
	})
	return ProductionReport{
		BatchNumber:    b.Number,
		OperatorName:   b.OperatorName,
		Location:       b.Location,
		ProductionDate: b.ProductionDate,
		Coupons:        lines,
	}
}

// FormatProductionDate renders t as "01-Jan-1901 / 14:00".
func FormatProductionDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Nominal renders the amount column: "0" or the dotted amount.
func Nominal(amount int64) string {
	return lot.FormatAmount(amount)
}

// Caption renders the description column.  Winners print "-".
func Caption(l Line) string {
	if l.PrizeAmount > 0 {
		return "-"
	}
	if l.PrizeDescription != "" {
		return l.PrizeDescription
	}
	return NoPrizeCaption
}

// Text renders the report as aligned plain text.
func Text(r ProductionReport) string {
	var sb strings.Builder
	sb.WriteString("LAPORAN PRODUKSI PER BATCH\n")
	fmt.Fprintf(&sb, "No Batch      : %d\n", r.BatchNumber)
	fmt.Fprintf(&sb, "Nama Operator : %s\n", r.OperatorName)
	fmt.Fprintf(&sb, "Lokasi        : %s\n", r.Location)
	fmt.Fprintf(&sb, "Tanggal / Jam : %s\n\n", FormatProductionDate(r.ProductionDate))

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "No Box\tNo Kupon\tNominal\t")
	for _, l := range r.Coupons {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", l.BoxNumber, l.CouponNumber, Nominal(l.PrizeAmount))
	}
	_ = tw.Flush()

	// captions are left-aligned, so they go in a second pass keyed by line
	out := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	offset := len(out) - len(r.Coupons)
	for i, l := range r.Coupons {
		out[offset+i] += "  " + Caption(l)
	}
	out[offset-1] += "  Keterangan"
	return strings.Join(out, "\n") + "\n"
}

// WriteCSV writes the report rows as CSV with a header line.
func WriteCSV(w io.Writer, r ProductionReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"batch_number", "box_number", "coupon_number", "prize_amount", "keterangan"}); err != nil {
		return err
	}
	batch := strconv.FormatUint(r.BatchNumber, 10)
	for _, l := range r.Coupons {
		rec := []string{batch, strconv.Itoa(l.BoxNumber), l.CouponNumber, Nominal(l.PrizeAmount), Caption(l)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
