package data

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"battery-arbitrage/internal/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	timeColumns  = []string{"time", "datetime", "timestamp"}
	priceColumns = []string{"prices", "price"}
)

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
}

// CleanReport counts what Clean and the CSV loader threw away.
type CleanReport struct {
	Rows           int  `json:"rows"`
	Kept           int  `json:"kept"`
	MissingPrice   int  `json:"missing_price"`
	BadTimestamp   int  `json:"bad_timestamp"`
	DuplicateTimes int  `json:"duplicate_times"`
	Reordered      bool `json:"reordered"`
}

// Dropped is the number of input rows not kept.
func (r CleanReport) Dropped() int { return r.Rows - r.Kept }

// LoadPricesCSV reads and cleans a price CSV from disk. Timestamps without a
// zone are read in loc (UTC when nil).
func LoadPricesCSV(path string, loc *time.Location) (model.Series, CleanReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, CleanReport{}, err
	}
	defer f.Close()
	return ReadPricesCSV(f, loc)
}

// ReadPricesCSV parses a header-first CSV with a time column and a price
// column. Column names are matched case-insensitively.
func ReadPricesCSV(r io.Reader, loc *time.Location) (model.Series, CleanReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return model.Series{}, CleanReport{}, fmt.Errorf("read prices csv: %w", df.Err)
	}

	timeCol, err := findColumn(df.Names(), timeColumns)
	if err != nil {
		return model.Series{}, CleanReport{}, err
	}
	priceCol, err := findColumn(df.Names(), priceColumns)
	if err != nil {
		return model.Series{}, CleanReport{}, err
	}

	times := df.Col(timeCol).Records()
	prices := df.Col(priceCol).Records()

	var rep CleanReport
	rep.Rows = len(times)
	points := make([]model.PricePoint, 0, len(times))
	for i := range times {
		price, ok := parsePrice(prices[i])
		if !ok {
			rep.MissingPrice++
			continue
		}
		ts, err := parseTime(times[i], loc)
		if err != nil {
			rep.BadTimestamp++
			continue
		}
		points = append(points, model.PricePoint{Time: ts, Price: price})
	}

	cleaned, cr := Clean(points)
	rep.MissingPrice += cr.MissingPrice
	rep.DuplicateTimes = cr.DuplicateTimes
	rep.Reordered = cr.Reordered
	rep.Kept = cr.Kept
	return model.NewSeries(cleaned), rep, nil
}

// Clean drops non-finite prices, sorts by time and keeps the first point of
// each duplicated timestamp. The input slice is not modified.
func Clean(points []model.PricePoint) ([]model.PricePoint, CleanReport) {
	rep := CleanReport{Rows: len(points)}
	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			rep.MissingPrice++
			continue
		}
		out = append(out, p)
	}

	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) }) {
		rep.Reordered = true
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	}

	deduped := out[:0]
	for i, p := range out {
		if i > 0 && p.Time.Equal(deduped[len(deduped)-1].Time) {
			rep.DuplicateTimes++
			continue
		}
		deduped = append(deduped, p)
	}
	rep.Kept = len(deduped)
	return deduped, rep
}

func findColumn(names, candidates []string) (string, error) {
	for _, want := range candidates {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), want) {
				return n, nil
			}
		}
	}
	return "", fmt.Errorf("prices csv: none of the columns %v found in header %v", candidates, names)
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
