package report

import (
	"time"

	"battery-arbitrage/internal/model"
)

// LedgerRow is one period of a schedule with the running revenue.
// This is what the results endpoint and the CLI summary print.
type LedgerRow struct {
	Index int       `json:"index"`
	Time  time.Time `json:"datetime"`
	Price float64   `json:"price"`

	Action model.Action `json:"action"`

	ChargeMW       float64  `json:"charging_mw"`
	DischargeMW    float64  `json:"discharging_mw"`
	SOCMWh         float64  `json:"soc_mwh"`
	ChargePrice    *float64 `json:"charge_price"`
	DischargePrice *float64 `json:"discharge_price"`

	Revenue    float64 `json:"revenue"`
	CumRevenue float64 `json:"cum_revenue"`
}

// Summary totals a schedule.
type Summary struct {
	Periods          int     `json:"periods"`
	TotalRevenue     float64 `json:"total_revenue"`
	ChargingPeriods  int     `json:"charging_periods"`
	DischargePeriods int     `json:"discharging_periods"`
	IdlePeriods      int     `json:"idle_periods"`
	FinalSOCMWh      float64 `json:"final_soc_mwh"`
}

// Ledger turns results into ledger rows, keeping their order.
func Ledger(results []model.Result) []LedgerRow {
	out := make([]LedgerRow, 0, len(results))
	cum := 0.0
	for _, r := range results {
		cum += r.Revenue
		out = append(out, LedgerRow{
			Index:          r.Index,
			Time:           r.Time,
			Price:          r.Price,
			Action:         r.Action(),
			ChargeMW:       r.ChargeMW,
			DischargeMW:    r.DischargeMW,
			SOCMWh:         r.SOCMWh,
			ChargePrice:    r.ChargePrice,
			DischargePrice: r.DischargePrice,
			Revenue:        r.Revenue,
			CumRevenue:     cum,
		})
	}
	return out
}

func Summarize(results []model.Result) Summary {
	s := Summary{Periods: len(results)}
	for _, r := range results {
		s.TotalRevenue += r.Revenue
		if r.ChargeMW > 0 {
			s.ChargingPeriods++
		}
		if r.DischargeMW > 0 {
			s.DischargePeriods++
		}
		if r.Action() == model.ActionIdle {
			s.IdlePeriods++
		}
	}
	if len(results) > 0 {
		s.FinalSOCMWh = results[len(results)-1].SOCMWh
	}
	return s
}
