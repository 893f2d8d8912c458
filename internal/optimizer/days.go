package optimizer

import (
	"fmt"
	"time"

	"battery-arbitrage/internal/model"
)

// DayKey identifies a calendar date.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

func (d DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayKeyOf returns the calendar date of t in loc, or in t's own location when
// loc is nil. It depends on nothing but its arguments.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// DayGroup is the set of period indexes falling on one calendar date.
type DayGroup struct {
	Key     DayKey
	Periods []int
}

// GroupByDay partitions period indexes by calendar date. Groups are ordered
// by their first period and periods keep input order.
func GroupByDay(points []model.PricePoint, loc *time.Location) []DayGroup {
	var groups []DayGroup
	pos := map[DayKey]int{}
	for i, p := range points {
		k := DayKeyOf(p.Time, loc)
		g, ok := pos[k]
		if !ok {
			g = len(groups)
			pos[k] = g
			groups = append(groups, DayGroup{Key: k})
		}
		groups[g].Periods = append(groups[g].Periods, i)
	}
	return groups
}
