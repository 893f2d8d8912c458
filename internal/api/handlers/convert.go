package handlers

import (
	"fmt"
	"time"

	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/data"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/report"
)

// toSeries turns request prices into a cleaned series. Rows are already
// required to carry a price, so only ordering and duplicates are repaired.
func toSeries(in models.PriceSeries) (model.Series, data.CleanReport, *time.Location, error) {
	loc, err := requestLocation(in.Timezone)
	if err != nil {
		return model.Series{}, data.CleanReport{}, nil, err
	}
	points := make([]model.PricePoint, 0, len(in.Prices))
	for _, p := range in.Prices {
		points = append(points, model.PricePoint{Time: p.Timestamp, Price: *p.Price})
	}
	clean, rep := data.Clean(points)
	series := model.NewSeries(clean)
	if in.PeriodMinutes > 0 {
		series.Period = time.Duration(in.PeriodMinutes) * time.Minute
	}
	return series, rep, loc, nil
}

func requestLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &model.ValidationError{Field: "timezone", Reason: fmt.Sprintf("unknown timezone %q", name)}
	}
	return loc, nil
}

// buildRunResponse converts a run for the API. Charge and discharge windows
// are split by day in the calendar the run was optimised in.
func buildRunResponse(run *optimizer.Run, includeResults bool) models.RunResponse {
	resp := models.RunResponse{
		ID:              run.ID.String(),
		State:           string(run.State),
		SolverStatus:    string(run.Status),
		CyclesPerDay:    run.Cycles,
		Objective:       run.Objective,
		Periods:         run.Periods,
		SolveDurationMS: float64(run.SolveDuration.Microseconds()) / 1000,
		CreatedAt:       run.CreatedAt,
	}
	if run.Err != nil {
		_, detail := classify(run.Err)
		resp.Error = &detail
		return resp
	}
	if len(run.Results) == 0 {
		return resp
	}

	step := run.Period
	if step <= 0 {
		step = model.DefaultPeriod
	}
	summary := report.Summarize(run.Results)
	resp.Summary = &summary
	resp.Window = &models.TimeWindow{
		Start: run.Results[0].Time,
		End:   run.Results[len(run.Results)-1].Time.Add(step),
	}
	resp.ChargeWindows, resp.DischargeWindows = buildWindows(run.Results, step, run.Location)
	if includeResults {
		resp.Results = report.Ledger(run.Results)
	}
	return resp
}

type windowAcc struct {
	window models.TimeWindow
	value  float64 // price * energy
	energy float64
}

func (w *windowAcc) add(r model.Result, step time.Duration, energy float64) {
	end := r.Time.Add(step)
	if w.energy == 0 && w.window.Start.IsZero() {
		w.window = models.TimeWindow{Start: r.Time, End: end}
	} else {
		w.window.End = end
	}
	w.value += r.Price * energy
	w.energy += energy
}

func (w *windowAcc) average() float64 {
	if w.energy == 0 {
		return 0
	}
	return w.value / w.energy
}

// buildWindows spans each day's charging and discharging with the
// energy-weighted price. Energy is grid-side MW times period hours.
func buildWindows(results []model.Result, step time.Duration, loc *time.Location) ([]models.ChargeWindow, []models.DischargeWindow) {
	hours := step.Hours()
	var days []optimizer.DayKey
	charge := make(map[optimizer.DayKey]*windowAcc)
	discharge := make(map[optimizer.DayKey]*windowAcc)

	for _, r := range results {
		if r.ChargeMW <= 0 && r.DischargeMW <= 0 {
			continue
		}
		day := optimizer.DayKeyOf(r.Time, loc)
		if charge[day] == nil && discharge[day] == nil {
			days = append(days, day)
			charge[day] = &windowAcc{}
			discharge[day] = &windowAcc{}
		}
		if r.ChargeMW > 0 {
			charge[day].add(r, step, r.ChargeMW*hours)
		}
		if r.DischargeMW > 0 {
			discharge[day].add(r, step, r.DischargeMW*hours)
		}
	}

	chargeWindows := make([]models.ChargeWindow, 0, len(days))
	dischargeWindows := make([]models.DischargeWindow, 0, len(days))
	for _, day := range days {
		if w := charge[day]; w.energy > 0 {
			chargeWindows = append(chargeWindows, models.ChargeWindow{
				TimeWindow:        w.window,
				AverageCostPerMWh: w.average(),
				EnergyMWh:         w.energy,
			})
		}
		if w := discharge[day]; w.energy > 0 {
			dischargeWindows = append(dischargeWindows, models.DischargeWindow{
				TimeWindow:         w.window,
				AveragePricePerMWh: w.average(),
				EnergyMWh:          w.energy,
			})
		}
	}
	return chargeWindows, dischargeWindows
}
