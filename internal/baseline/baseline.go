// Package baseline values the naive daily strategy the optimiser is compared
// against: buy a full battery at the cheapest hour of each day and sell it at
// the most expensive one.
package baseline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"battery-arbitrage/internal/model"
)

// Params sizes the baseline battery.
type Params struct {
	CapacityMWh         float64 `json:"capacity_mwh" yaml:"capacity_mwh"`
	PowerMW             float64 `json:"power_mw" yaml:"power_mw"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency" yaml:"round_trip_efficiency"`
}

// DefaultParams is a 100 MW / 100 MWh battery at 85% round trip.
func DefaultParams() Params {
	return Params{CapacityMWh: 100, PowerMW: 100, RoundTripEfficiency: 0.85}
}

func (p Params) Validate() error {
	switch {
	case !(p.CapacityMWh > 0) || math.IsInf(p.CapacityMWh, 0):
		return &model.ValidationError{Field: "capacity_mwh", Reason: "must be > 0"}
	case !(p.PowerMW > 0) || math.IsInf(p.PowerMW, 0):
		return &model.ValidationError{Field: "power_mw", Reason: "must be > 0"}
	case !(p.RoundTripEfficiency > 0 && p.RoundTripEfficiency <= 1):
		return &model.ValidationError{Field: "round_trip_efficiency", Reason: "must be in (0, 1]"}
	}
	return nil
}

// HourlyPrice is the mean price of one clock hour.
type HourlyPrice struct {
	Hour  time.Time
	Price float64
}

// DailyRevenue is the baseline trade of one calendar day. Revenue is zero
// when the cheapest hour does not come before the dearest one.
type DailyRevenue struct {
	Date      time.Time `json:"date"`
	BuyHour   time.Time `json:"buy_hour"`
	BuyPrice  float64   `json:"buy_price"`
	SellHour  time.Time `json:"sell_hour"`
	SellPrice float64   `json:"sell_price"`
	Revenue   float64   `json:"revenue"`
}

// Traded reports whether the day's buy precedes its sell.
func (d DailyRevenue) Traded() bool { return d.BuyHour.Before(d.SellHour) }

// AnnualRevenue sums DailyRevenue by calendar year.
type AnnualRevenue struct {
	Year         int     `json:"year"`
	Revenue      float64 `json:"revenue"`
	RevenuePerKW float64 `json:"revenue_per_kw"`
	Days         int     `json:"days"`
}

type Result struct {
	Daily  []DailyRevenue  `json:"daily"`
	Annual []AnnualRevenue `json:"annual"`
}

// Total is the revenue over all days.
func (r Result) Total() float64 {
	total := 0.0
	for _, a := range r.Annual {
		total += a.Revenue
	}
	return total
}

// Run values the baseline over series. Hours and days are clock hours and
// calendar dates in loc, or in each timestamp's own location when loc is nil.
func Run(series model.Series, p Params, loc *time.Location) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, &model.ValidationError{Field: "prices", Reason: "series is empty"}
	}
	for i, pt := range series.Points {
		if math.IsNaN(pt.Price) || math.IsInf(pt.Price, 0) {
			return nil, &model.ValidationError{Field: "prices", Reason: fmt.Sprintf("non-finite price at index %d", i)}
		}
	}

	hourly := Hourly(series.Points, loc)
	res := &Result{}
	for _, day := range byDay(hourly) {
		res.Daily = append(res.Daily, trade(day, p))
	}
	res.Annual = annual(res.Daily, p)
	return res, nil
}

// Hourly averages points into clock hours, ordered by hour. Hours with no
// points are absent. Buckets are keyed by instant, so the hour repeated when
// clocks go back yields two buckets.
func Hourly(points []model.PricePoint, loc *time.Location) []HourlyPrice {
	type acc struct {
		hour time.Time
		sum  float64
		n    int
	}
	buckets := map[int64]*acc{}
	for _, pt := range points {
		t := pt.Time
		if loc != nil {
			t = t.In(loc)
		}
		h := t.Add(-time.Duration(t.Minute())*time.Minute -
			time.Duration(t.Second())*time.Second -
			time.Duration(t.Nanosecond()))
		a, ok := buckets[h.Unix()]
		if !ok {
			a = &acc{hour: h}
			buckets[h.Unix()] = a
		}
		a.sum += pt.Price
		a.n++
	}

	out := make([]HourlyPrice, 0, len(buckets))
	for _, a := range buckets {
		out = append(out, HourlyPrice{Hour: a.hour, Price: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}

func byDay(hourly []HourlyPrice) [][]HourlyPrice {
	var days [][]HourlyPrice
	for i, h := range hourly {
		if i == 0 || !sameDate(h.Hour, hourly[i-1].Hour) {
			days = append(days, nil)
		}
		days[len(days)-1] = append(days[len(days)-1], h)
	}
	return days
}

// trade picks the first cheapest and the first dearest hour of the day.
func trade(day []HourlyPrice, p Params) DailyRevenue {
	lo, hi := day[0], day[0]
	for _, h := range day[1:] {
		if h.Price < lo.Price {
			lo = h
		}
		if h.Price > hi.Price {
			hi = h
		}
	}
	first := day[0].Hour
	d := DailyRevenue{
		Date:      time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location()),
		BuyHour:   lo.Hour,
		BuyPrice:  lo.Price,
		SellHour:  hi.Hour,
		SellPrice: hi.Price,
	}
	if d.Traded() {
		d.Revenue = (hi.Price - lo.Price) * p.CapacityMWh * p.RoundTripEfficiency
	}
	return d
}

func annual(daily []DailyRevenue, p Params) []AnnualRevenue {
	var out []AnnualRevenue
	for _, d := range daily {
		if len(out) == 0 || out[len(out)-1].Year != d.Date.Year() {
			out = append(out, AnnualRevenue{Year: d.Date.Year()})
		}
		a := &out[len(out)-1]
		a.Revenue += d.Revenue
		a.Days++
	}
	for i := range out {
		out[i].RevenuePerKW = out[i].Revenue / (p.PowerMW * 1000)
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
