package model

import (
	"math"
	"time"
)

// DefaultPeriod is used when a series has a single point and no explicit
// period. Half-hourly matches the settlement resolution of the source data.
const DefaultPeriod = 30 * time.Minute

// PricePoint is one period of the price series. Price is in currency/MWh.
type PricePoint struct {
	Time  time.Time `json:"timestamp"`
	Price float64   `json:"price"`
}

// Series is an ordered, uniform-period price series.
// Period may be left zero, in which case it is inferred from the timestamps.
type Series struct {
	Points []PricePoint
	Period time.Duration
}

// NewSeries wraps points with an inferred period.
func NewSeries(points []PricePoint) Series {
	return Series{Points: points}
}

func (s Series) Len() int { return len(s.Points) }

// PeriodLength returns the explicit period, or the gap between the first two
// points, or DefaultPeriod for a single point.
func (s Series) PeriodLength() time.Duration {
	if s.Period > 0 {
		return s.Period
	}
	if len(s.Points) >= 2 {
		return s.Points[1].Time.Sub(s.Points[0].Time)
	}
	return DefaultPeriod
}

// PeriodHours is PeriodLength in hours.
func (s Series) PeriodHours() float64 {
	return s.PeriodLength().Hours()
}

// Validate checks the series is non-empty, has finite prices, is strictly
// increasing in time and has a uniform period.
func (s Series) Validate() error {
	if len(s.Points) == 0 {
		return invalid("prices", "series is empty")
	}
	if s.Period < 0 {
		return invalid("period", "must be > 0")
	}
	period := s.PeriodLength()
	for i, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return invalidf("prices", "non-finite price at index %d", i)
		}
		if p.Time.IsZero() {
			return invalidf("prices", "missing timestamp at index %d", i)
		}
		if i == 0 {
			continue
		}
		gap := p.Time.Sub(s.Points[i-1].Time)
		if gap <= 0 {
			return invalidf("prices", "timestamps not strictly increasing at index %d (%s after %s)",
				i, p.Time.Format(time.RFC3339), s.Points[i-1].Time.Format(time.RFC3339))
		}
		if gap != period {
			return invalidf("prices", "irregular period at index %d: got %s, expected %s", i, gap, period)
		}
	}
	return nil
}
