package analysis

import (
	"math"
	"sort"
	"time"

	"battery-arbitrage/internal/model"

	"gonum.org/v1/gonum/stat"
)

// PriceStats summarises a price series. It does not depend on a battery; it
// is printed next to optimised results so a run can be sanity-checked
// against the spread it had to work with.
type PriceStats struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
	Days  int       `json:"days"`

	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
	// MeanDailySpread is the average of each day's max minus min.
	MeanDailySpread float64 `json:"mean_daily_spread"`
	NegativePeriods int     `json:"negative_periods"`
}

// Describe computes PriceStats over the points of s. Days are calendar dates
// in loc, or in each timestamp's own location when loc is nil.
func Describe(s model.Series, loc *time.Location) PriceStats {
	p := PriceStats{}
	if s.Len() == 0 {
		return p
	}
	p.Count = s.Len()
	p.Start = s.Points[0].Time
	p.End = s.Points[s.Len()-1].Time

	vals := make([]float64, 0, s.Len())
	type span struct{ lo, hi float64 }
	days := map[string]*span{}
	for _, pt := range s.Points {
		vals = append(vals, pt.Price)
		if pt.Price < 0 {
			p.NegativePeriods++
		}
		t := pt.Time
		if loc != nil {
			t = t.In(loc)
		}
		key := t.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			days[key] = &span{lo: pt.Price, hi: pt.Price}
			continue
		}
		d.lo = math.Min(d.lo, pt.Price)
		d.hi = math.Max(d.hi, pt.Price)
	}

	p.Mean, p.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		p.StdDev = 0
	}
	sort.Float64s(vals)
	p.Min = vals[0]
	p.Max = vals[len(vals)-1]
	p.P05 = stat.Quantile(0.05, stat.LinInterp, vals, nil)
	p.P95 = stat.Quantile(0.95, stat.LinInterp, vals, nil)
	p.SpreadP95P05 = p.P95 - p.P05

	p.Days = len(days)
	total := 0.0
	for _, d := range days {
		total += d.hi - d.lo
	}
	p.MeanDailySpread = total / float64(len(days))
	return p
}
