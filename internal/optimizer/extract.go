package optimizer

import (
	"fmt"

	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
)

// Extract maps an optimal solution back onto the input periods. The output
// has one Result per input point, in input order.
func Extract(p *Problem, sol *lp.Solution) ([]model.Result, error) {
	if sol == nil || sol.Status != lp.StatusOptimal {
		return nil, fmt.Errorf("extract: solution is not optimal")
	}
	if len(sol.Values) != p.Model.NumVars() {
		return nil, fmt.Errorf("extract: solution has %d values, model has %d variables", len(sol.Values), p.Model.NumVars())
	}

	out := make([]model.Result, len(p.Series.Points))
	for t, pt := range p.Series.Points {
		ch := sol.Values[p.Charge[t]]
		dis := sol.Values[p.Discharge[t]]
		r := model.Result{
			Index:       t,
			Time:        pt.Time,
			ChargeMW:    ch,
			DischargeMW: dis,
			SOCMWh:      sol.Values[p.SOC[t]],
			Price:       pt.Price,
			Revenue:     PeriodRevenue(pt.Price, ch, dis, p.Spec),
		}
		if ch > 0 {
			price := pt.Price
			r.ChargePrice = &price
		}
		if dis > 0 {
			price := pt.Price
			r.DischargePrice = &price
		}
		out[t] = r
	}
	return out, nil
}

// TotalRevenue sums Revenue over results.
func TotalRevenue(results []model.Result) float64 {
	total := 0.0
	for _, r := range results {
		total += r.Revenue
	}
	return total
}
