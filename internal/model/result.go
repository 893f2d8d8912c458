package model

import "time"

// Result is one period of an optimised schedule.
// ChargePrice and DischargePrice are only set when the matching flow is
// strictly positive. Both may be set in the same period.
type Result struct {
	Index          int
	Time           time.Time
	ChargeMW       float64
	DischargeMW    float64
	SOCMWh         float64
	Price          float64
	ChargePrice    *float64
	DischargePrice *float64
	Revenue        float64
}

// Action classifies the period for CSV output and summaries.
func (r Result) Action() Action {
	return ActionFromFlows(r.ChargeMW, r.DischargeMW)
}
