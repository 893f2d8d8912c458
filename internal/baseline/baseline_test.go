package baseline

import (
	"errors"
	"testing"
	"time"

	"battery-arbitrage/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func halfHourly(start time.Time, prices ...float64) model.Series {
	pts := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = model.PricePoint{Time: start.Add(time.Duration(i) * 30 * time.Minute), Price: p}
	}
	return model.NewSeries(pts)
}

func TestHourlyAverages(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hourly := Hourly(halfHourly(start, 10, 20, 30, 50).Points, nil)

	require.Len(t, hourly, 2)
	assert.Equal(t, start, hourly[0].Hour)
	assert.Equal(t, 15.0, hourly[0].Price)
	assert.Equal(t, 40.0, hourly[1].Price)
}

func TestHourlyKeepsRepeatedHourApart(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	// 00:00Z is 01:00 BST and 01:00Z is 01:00 GMT on 29 Oct 2023.
	start := time.Date(2023, 10, 29, 0, 0, 0, 0, time.UTC)
	hourly := Hourly(halfHourly(start, 10, 20, 100, 200).Points, london)

	require.Len(t, hourly, 2)
	assert.True(t, hourly[0].Hour.Equal(start))
	assert.True(t, hourly[1].Hour.Equal(start.Add(time.Hour)))
	assert.Equal(t, 1, hourly[0].Hour.Hour())
	assert.Equal(t, 1, hourly[1].Hour.Hour())
	assert.Equal(t, 15.0, hourly[0].Price)
	assert.Equal(t, 150.0, hourly[1].Price)
}

func TestHourlyHalfHourOffset(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	// 18:30Z is midnight in Kolkata.
	start := time.Date(2023, 1, 1, 18, 30, 0, 0, time.UTC)
	hourly := Hourly(halfHourly(start, 10, 20, 30).Points, kolkata)

	require.Len(t, hourly, 2)
	assert.Equal(t, 0, hourly[0].Hour.Hour())
	assert.Equal(t, 0, hourly[0].Hour.Minute())
	assert.Equal(t, 15.0, hourly[0].Price)
	assert.Equal(t, 30.0, hourly[1].Price)
}

func TestRunBuysLowSellsHigh(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	// Day 1: hours at 10, 40, 25 -> buy hour 0, sell hour 1.
	// Day 2: hours at 90, 20 -> the cheapest hour comes last, no trade.
	day1 := halfHourly(start, 10, 10, 40, 40, 25, 25)
	day2 := halfHourly(start.Add(24*time.Hour), 90, 90, 20, 20)
	series := model.NewSeries(append(day1.Points, day2.Points...))

	p := Params{CapacityMWh: 100, PowerMW: 100, RoundTripEfficiency: 0.85}
	res, err := Run(series, p, nil)
	require.NoError(t, err)

	require.Len(t, res.Daily, 2)
	d1 := res.Daily[0]
	assert.True(t, d1.Traded())
	assert.Equal(t, start, d1.Date)
	assert.Equal(t, start, d1.BuyHour)
	assert.Equal(t, start.Add(time.Hour), d1.SellHour)
	assert.InDelta(t, 30*100*0.85, d1.Revenue, 1e-9)

	d2 := res.Daily[1]
	assert.False(t, d2.Traded())
	assert.Equal(t, 0.0, d2.Revenue)

	require.Len(t, res.Annual, 1)
	assert.Equal(t, 2023, res.Annual[0].Year)
	assert.Equal(t, 2, res.Annual[0].Days)
	assert.InDelta(t, 2550, res.Annual[0].Revenue, 1e-9)
	assert.InDelta(t, 2550.0/100000, res.Annual[0].RevenuePerKW, 1e-12)
	assert.InDelta(t, 2550, res.Total(), 1e-9)
}

func TestRunSplitsYears(t *testing.T) {
	start := time.Date(2022, 12, 31, 22, 0, 0, 0, time.UTC)
	series := halfHourly(start, 1, 1, 5, 5, 2, 2, 8, 8)

	res, err := Run(series, DefaultParams(), nil)
	require.NoError(t, err)
	require.Len(t, res.Annual, 2)
	assert.Equal(t, 2022, res.Annual[0].Year)
	assert.Equal(t, 2023, res.Annual[1].Year)
	assert.InDelta(t, 4*100*0.85, res.Annual[0].Revenue, 1e-9)
	assert.InDelta(t, 6*100*0.85, res.Annual[1].Revenue, 1e-9)
}

func TestRunFlatDayEarnsNothing(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := Run(halfHourly(start, 7, 7, 7, 7), DefaultParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Total())
}

func TestRunValidation(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		series model.Series
		params Params
		field  string
	}{
		{"empty", model.Series{}, DefaultParams(), "prices"},
		{"zero capacity", halfHourly(start, 1), Params{PowerMW: 1, RoundTripEfficiency: 1}, "capacity_mwh"},
		{"zero power", halfHourly(start, 1), Params{CapacityMWh: 1, RoundTripEfficiency: 1}, "power_mw"},
		{"efficiency", halfHourly(start, 1), Params{CapacityMWh: 1, PowerMW: 1, RoundTripEfficiency: 1.5}, "round_trip_efficiency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.series, tt.params, nil)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
