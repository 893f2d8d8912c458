package data

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"battery-arbitrage/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPricesCSV(t *testing.T) {
	in := strings.Join([]string{
		"time,prices,volume",
		"2023-01-01 00:30:00,45.2,1",
		"2023-01-01 00:00:00,40.1,1",
		"2023-01-01 01:00:00,,1",
		"2023-01-01 01:30:00,NaN,1",
		"not a time,50,1",
		"2023-01-01 00:30:00,99,1",
		"2023-01-01 02:00:00,-3.5,1",
	}, "\n")

	s, rep, err := ReadPricesCSV(strings.NewReader(in), nil)
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), s.Points[0].Time)
	assert.Equal(t, 40.1, s.Points[0].Price)
	assert.Equal(t, 45.2, s.Points[1].Price, "first duplicate wins")
	assert.Equal(t, -3.5, s.Points[2].Price)

	assert.Equal(t, 7, rep.Rows)
	assert.Equal(t, 3, rep.Kept)
	assert.Equal(t, 2, rep.MissingPrice)
	assert.Equal(t, 1, rep.BadTimestamp)
	assert.Equal(t, 1, rep.DuplicateTimes)
	assert.True(t, rep.Reordered)
	assert.Equal(t, 4, rep.Dropped())
}

func TestReadPricesCSVColumnAliasesAndLayouts(t *testing.T) {
	in := "Datetime,Price\n01/06/2023 10:00,12\n01/06/2023 10:30,13\n"
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	s, rep, err := ReadPricesCSV(strings.NewReader(in), london)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC), s.Points[0].Time.UTC())
	assert.Equal(t, 30*time.Minute, s.PeriodLength())
	assert.False(t, rep.Reordered)
	assert.NoError(t, s.Validate())
}

func TestReadPricesCSVMissingColumn(t *testing.T) {
	_, _, err := ReadPricesCSV(strings.NewReader("when,value\n2023-01-01 00:00,1\n"), nil)
	assert.ErrorContains(t, err, "none of the columns")
}

func TestLoadPricesCSVFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,prices\n2023-01-01T00:00:00Z,1\n2023-01-01T00:30:00Z,2\n"), 0o644))

	s, rep, err := LoadPricesCSV(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 0, rep.Dropped())

	_, _, err = LoadPricesCSV(filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []model.PricePoint{
		{Time: t0.Add(time.Hour), Price: 3},
		{Time: t0, Price: math.NaN()},
		{Time: t0, Price: 1},
		{Time: t0.Add(time.Hour), Price: 4},
		{Time: t0.Add(2 * time.Hour), Price: math.Inf(-1)},
	}
	orig := append([]model.PricePoint(nil), in...)

	out, rep := Clean(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Price)
	assert.Equal(t, 3.0, out[1].Price)
	assert.Equal(t, 2, rep.MissingPrice)
	assert.Equal(t, 1, rep.DuplicateTimes)
	assert.True(t, rep.Reordered)
	assert.Equal(t, orig[0], in[0])
}

func TestReadPricesJSON(t *testing.T) {
	in := `{"period_minutes": 60, "data": [
		{"timestamp": "2023-01-01T01:00:00Z", "price": 20},
		{"timestamp": "2023-01-01T00:00:00Z", "price": 10}
	]}`
	s, rep, err := ReadPricesJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 10.0, s.Points[0].Price)
	assert.Equal(t, time.Hour, s.Period)
	assert.True(t, rep.Reordered)

	_, _, err = ReadPricesJSON(strings.NewReader(`{"data": [`))
	assert.Error(t, err)
}
