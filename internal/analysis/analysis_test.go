package analysis

import (
	"testing"
	"time"

	"battery-arbitrage/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 22, 0, 0, 0, time.UTC)
	prices := []float64{10, -5, 30, 20, 40, 0}
	pts := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = model.PricePoint{Time: t0.Add(time.Duration(i) * time.Hour), Price: p}
	}

	s := Describe(model.NewSeries(pts), nil)
	assert.Equal(t, 6, s.Count)
	assert.Equal(t, 2, s.Days)
	assert.Equal(t, -5.0, s.Min)
	assert.Equal(t, 40.0, s.Max)
	assert.InDelta(t, 95.0/6, s.Mean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, 1, s.NegativePeriods)
	assert.LessOrEqual(t, s.P05, s.P95)
	assert.InDelta(t, s.P95-s.P05, s.SpreadP95P05, 1e-12)
	// Day one: 10, -5 -> 15. Day two: 30, 20, 40, 0 -> 40.
	assert.InDelta(t, 27.5, s.MeanDailySpread, 1e-12)
}

func TestDescribeEdgeCases(t *testing.T) {
	assert.Equal(t, PriceStats{}, Describe(model.Series{}, nil))

	one := Describe(model.NewSeries([]model.PricePoint{{Time: time.Unix(0, 0).UTC(), Price: 7}}), nil)
	assert.Equal(t, 7.0, one.Mean)
	assert.Equal(t, 0.0, one.StdDev)
	assert.Equal(t, 0.0, one.MeanDailySpread)
}

func TestRankByRevenue(t *testing.T) {
	ranked := RankByRevenue([]Scenario{
		{Name: "baseline", Revenue: 100},
		{Name: "optimised", Cycles: 1, Revenue: 150},
		{Name: "optimised", Cycles: 3, Err: "solver timeout"},
		{Name: "optimised", Cycles: 2, Revenue: 200},
	}, 100)

	require.Len(t, ranked, 4)
	assert.Equal(t, 2, ranked[0].Cycles)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.InDelta(t, 1.0, ranked[0].UpliftVsBaseline, 1e-12)
	assert.InDelta(t, 0.5, ranked[1].UpliftVsBaseline, 1e-12)
	assert.Equal(t, "baseline", ranked[2].Name)
	assert.Equal(t, "solver timeout", ranked[3].Err)
	assert.Equal(t, 4, ranked[3].Rank)
	assert.Equal(t, 0.0, ranked[3].UpliftVsBaseline)
}
