package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"battery-arbitrage/internal/model"
)

var resultsHeader = []string{
	"datetime",
	"charging_mw",
	"discharging_mw",
	"soc_mwh",
	"charge_price",
	"discharge_price",
	"revenue",
}

// SaveResultsCSV writes results to path, replacing any existing file.
func SaveResultsCSV(path string, results []model.Result) error {
	return saveCSV(path, func(w io.Writer) error { return WriteResultsCSV(w, results) })
}

// WriteResultsCSV writes one row per period. Absent trade prices are blank.
func WriteResultsCSV(out io.Writer, results []model.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			fmtTime(r.Time),
			fmtFloat(r.ChargeMW),
			fmtFloat(r.DischargeMW),
			fmtFloat(r.SOCMWh),
			fmtPrice(r.ChargePrice),
			fmtPrice(r.DischargePrice),
			fmtFloat(r.Revenue),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fmtPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return fmtFloat(*p)
}
