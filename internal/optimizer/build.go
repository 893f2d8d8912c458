package optimizer

import (
	"fmt"
	"time"

	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
)

const (
	// BaseDailyCycleMWh is the daily charge (and discharge) throughput
	// allowed per cycle.
	BaseDailyCycleMWh = 50.0

	// AbsoluteSOCCeilingMWh caps every SOC variable regardless of the
	// configured max SOC fraction.
	AbsoluteSOCCeilingMWh = 100.0
)

// BuildOptions tune model construction.
type BuildOptions struct {
	// Location fixes the calendar used for day grouping. Nil uses each
	// timestamp's own location.
	Location *time.Location
	// SOCCeilingMWh overrides AbsoluteSOCCeilingMWh when > 0.
	SOCCeilingMWh float64
}

func (o BuildOptions) socCeiling() float64 {
	if o.SOCCeilingMWh > 0 {
		return o.SOCCeilingMWh
	}
	return AbsoluteSOCCeilingMWh
}

// Problem is a built LP together with what is needed to read its solution.
// Charge, Discharge and SOC hold the variable index of each period.
type Problem struct {
	Model       *lp.Model
	Series      model.Series
	Spec        model.BatterySpec
	Cycles      int
	PeriodHours float64
	Days        []DayGroup

	Charge    []int
	Discharge []int
	SOC       []int
}

// Validate checks all inputs of Build without building anything.
func Validate(series model.Series, spec model.BatterySpec, cycles int) error {
	if err := series.Validate(); err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if cycles < 1 {
		return &model.ValidationError{Field: "cycles_per_day", Reason: "must be a positive integer"}
	}
	return nil
}

// Build formulates the dispatch LP:
//
//	max  Σ_t price[t]·discharge[t]/de − price[t]·charge[t]·ce
//	s.t. soc[0] = capacity/2
//	     soc[t] = soc[t-1] + charge[t-1]·ce − discharge[t-1]·de   (t > 0)
//	     Σ_{t∈day} charge[t]·h    ≤ BaseDailyCycleMWh·cycles       (each day)
//	     Σ_{t∈day} discharge[t]·h ≤ BaseDailyCycleMWh·cycles       (each day)
//	     soc[t] ≤ ceiling                                            (each t)
//
// Build has no side effects.
func Build(series model.Series, spec model.BatterySpec, cycles int, opts BuildOptions) (*Problem, error) {
	if err := Validate(series, spec, cycles); err != nil {
		return nil, err
	}

	n := series.Len()
	h := series.PeriodHours()
	m := lp.NewModel("battery-dispatch", lp.Maximize)
	p := &Problem{
		Model:       m,
		Series:      series,
		Spec:        spec,
		Cycles:      cycles,
		PeriodHours: h,
		Days:        GroupByDay(series.Points, opts.Location),
		Charge:      make([]int, n),
		Discharge:   make([]int, n),
		SOC:         make([]int, n),
	}

	ce, de := spec.ChargeEfficiency, spec.DischargeEfficiency
	for t, pt := range series.Points {
		p.Charge[t] = m.AddVar(fmt.Sprintf("charge[%d]", t), 0, spec.ChargePowerLimitMW)
		p.Discharge[t] = m.AddVar(fmt.Sprintf("discharge[%d]", t), 0, spec.DischargePowerLimitMW)
		p.SOC[t] = m.AddVar(fmt.Sprintf("soc[%d]", t), spec.MinSOCMWh(), spec.MaxSOCMWh())

		m.SetObjective(p.Charge[t], -pt.Price*ce)
		m.SetObjective(p.Discharge[t], pt.Price/de)
	}

	m.AddConstraint("soc_initial", []lp.Term{{Var: p.SOC[0], Coef: 1}}, lp.EQ, spec.InitialSOCMWh())
	for t := 1; t < n; t++ {
		m.AddConstraint(fmt.Sprintf("soc_balance[%d]", t), []lp.Term{
			{Var: p.SOC[t], Coef: 1},
			{Var: p.SOC[t-1], Coef: -1},
			{Var: p.Charge[t-1], Coef: -ce},
			{Var: p.Discharge[t-1], Coef: de},
		}, lp.EQ, 0)
	}

	limit := BaseDailyCycleMWh * float64(cycles)
	for _, day := range p.Days {
		chargeTerms := make([]lp.Term, 0, len(day.Periods))
		dischargeTerms := make([]lp.Term, 0, len(day.Periods))
		for _, t := range day.Periods {
			chargeTerms = append(chargeTerms, lp.Term{Var: p.Charge[t], Coef: h})
			dischargeTerms = append(dischargeTerms, lp.Term{Var: p.Discharge[t], Coef: h})
		}
		m.AddConstraint("daily_charge["+day.Key.String()+"]", chargeTerms, lp.LE, limit)
		m.AddConstraint("daily_discharge["+day.Key.String()+"]", dischargeTerms, lp.LE, limit)
	}

	ceiling := opts.socCeiling()
	for t := 0; t < n; t++ {
		m.AddConstraint(fmt.Sprintf("soc_ceiling[%d]", t), []lp.Term{{Var: p.SOC[t], Coef: 1}}, lp.LE, ceiling)
	}
	return p, nil
}

// PeriodRevenue is the objective term of one period.
func PeriodRevenue(price, chargeMW, dischargeMW float64, spec model.BatterySpec) float64 {
	return price*dischargeMW/spec.DischargeEfficiency - price*chargeMW*spec.ChargeEfficiency
}
