package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"battery-arbitrage/internal/model"
)

// pricesFile is the JSON shape written by the API and accepted by the CLI:
// {"period_minutes": 30, "data": [{"timestamp": "...", "price": 42.1}, ...]}
type pricesFile struct {
	PeriodMinutes int                `json:"period_minutes,omitempty"`
	Data          []model.PricePoint `json:"data"`
}

func LoadPricesJSON(path string) (model.Series, CleanReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, CleanReport{}, err
	}
	defer f.Close()
	return ReadPricesJSON(f)
}

// ReadPricesJSON decodes a prices file and runs it through Clean.
func ReadPricesJSON(r io.Reader) (model.Series, CleanReport, error) {
	var pf pricesFile
	if err := json.NewDecoder(r).Decode(&pf); err != nil {
		return model.Series{}, CleanReport{}, fmt.Errorf("read prices json: %w", err)
	}
	if pf.PeriodMinutes < 0 {
		return model.Series{}, CleanReport{}, fmt.Errorf("read prices json: negative period_minutes %d", pf.PeriodMinutes)
	}
	points, rep := Clean(pf.Data)
	s := model.NewSeries(points)
	s.Period = time.Duration(pf.PeriodMinutes) * time.Minute
	return s, rep, nil
}
