package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/model"

	"github.com/shopspring/decimal"
)

// Granularity is the bucket width of Resample.
type Granularity string

const (
	Daily   Granularity = "day"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

// ParseGranularity accepts day/month/year and the pandas-style D/M/Y.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily", "d":
		return Daily, nil
	case "month", "monthly", "m":
		return Monthly, nil
	case "year", "yearly", "annual", "y":
		return Yearly, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want day, month or year)", s)
}

func (g Granularity) start(t time.Time) time.Time {
	switch g {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func (g Granularity) label(t time.Time) string {
	switch g {
	case Monthly:
		return t.Format("2006-01")
	case Yearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// Bucket is a resampled slice of a schedule. Revenue is summed in decimal so
// that long series add up the same regardless of bucket width.
type Bucket struct {
	Start        time.Time       `json:"start"`
	Label        string          `json:"label"`
	Periods      int             `json:"periods"`
	Revenue      decimal.Decimal `json:"revenue"`
	ChargedMWh   float64         `json:"charged_mwh"`
	DischargeMWh float64         `json:"discharged_mwh"`
	MaxSOCMWh    float64         `json:"max_soc_mwh"`
}

// Resample sums results into calendar buckets of width g, in input order.
// Bucket boundaries use each result's own location.
func Resample(results []model.Result, g Granularity) []Bucket {
	h := periodHours(results)
	var out []Bucket
	for _, r := range results {
		start := g.start(r.Time)
		if len(out) == 0 || !out[len(out)-1].Start.Equal(start) {
			out = append(out, Bucket{Start: start, Label: g.label(start), Revenue: decimal.Zero})
		}
		b := &out[len(out)-1]
		b.Periods++
		b.Revenue = b.Revenue.Add(decimal.NewFromFloat(r.Revenue))
		b.ChargedMWh += r.ChargeMW * h
		b.DischargeMWh += r.DischargeMW * h
		if b.Periods == 1 || r.SOCMWh > b.MaxSOCMWh {
			b.MaxSOCMWh = r.SOCMWh
		}
	}
	return out
}

// Annual is Resample by year.
func Annual(results []model.Result) []Bucket {
	return Resample(results, Yearly)
}

// Total sums bucket revenue.
func Total(buckets []Bucket) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.Revenue)
	}
	return sum
}

func periodHours(results []model.Result) float64 {
	if len(results) >= 2 {
		return results[1].Time.Sub(results[0].Time).Hours()
	}
	return model.DefaultPeriod.Hours()
}

func SaveAnnualCSV(path string, buckets []Bucket) error {
	return saveCSV(path, func(w io.Writer) error { return WriteAnnualCSV(w, buckets) })
}

// WriteAnnualCSV writes year,revenue rows.
func WriteAnnualCSV(out io.Writer, buckets []Bucket) error {
	rows := [][]string{{"year", "revenue"}}
	for _, b := range buckets {
		rows = append(rows, []string{strconv.Itoa(b.Start.Year()), b.Revenue.StringFixed(2)})
	}
	return writeAll(out, rows)
}

func SaveDailyBaselineCSV(path string, daily []baseline.DailyRevenue) error {
	return saveCSV(path, func(w io.Writer) error { return WriteDailyBaselineCSV(w, daily) })
}

// WriteDailyBaselineCSV writes one row per baseline day.
func WriteDailyBaselineCSV(out io.Writer, daily []baseline.DailyRevenue) error {
	rows := [][]string{{"date", "buy_hour", "buy_price", "sell_hour", "sell_price", "revenue"}}
	for _, d := range daily {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			fmtTime(d.BuyHour),
			fmtFloat(d.BuyPrice),
			fmtTime(d.SellHour),
			fmtFloat(d.SellPrice),
			fmtFloat(d.Revenue),
		})
	}
	return writeAll(out, rows)
}

func SaveBaselineAnnualCSV(path string, annual []baseline.AnnualRevenue) error {
	return saveCSV(path, func(w io.Writer) error { return WriteBaselineAnnualCSV(w, annual) })
}

// WriteBaselineAnnualCSV writes year,revenue,revenue_per_kw rows.
func WriteBaselineAnnualCSV(out io.Writer, annual []baseline.AnnualRevenue) error {
	rows := [][]string{{"year", "revenue", "revenue_per_kw"}}
	for _, a := range annual {
		rows = append(rows, []string{strconv.Itoa(a.Year), fmtFloat(a.Revenue), fmtFloat(a.RevenuePerKW)})
	}
	return writeAll(out, rows)
}

func writeAll(out io.Writer, rows [][]string) error {
	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func saveCSV(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
