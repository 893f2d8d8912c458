package models

import (
	"time"

	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/config"
)

// PriceInput is one period of the request price series. Price is a pointer
// so that a missing price is a binding error and a zero price is not.
type PriceInput struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Price     *float64  `json:"price" binding:"required"`
}

// PriceSeries carries the prices common to every request.
type PriceSeries struct {
	Prices []PriceInput `json:"prices" binding:"required,dive"`
	// PeriodMinutes overrides the period inferred from the timestamps.
	PeriodMinutes int `json:"period_minutes,omitempty" binding:"omitempty,min=1"`
	// Timezone names the calendar used for daily limits and baseline days.
	Timezone string `json:"timezone,omitempty"`
}

// OptimizeRequest represents the request body for a single optimisation
type OptimizeRequest struct {
	PriceSeries
	// BatteryFile names a preset in the battery directory, without ".yaml".
	// Battery fields override the preset.
	BatteryFile    string               `json:"battery_file,omitempty"`
	Battery        config.BatteryConfig `json:"battery"`
	CyclesPerDay   int                  `json:"cycles_per_day"`
	SOCCeilingMWh  float64              `json:"soc_ceiling_mwh,omitempty"`
	IncludeResults bool                 `json:"include_results,omitempty"`
}

// ScenariosRequest runs one optimisation per cycles value over the same
// prices and battery.
type ScenariosRequest struct {
	PriceSeries
	BatteryFile   string               `json:"battery_file,omitempty"`
	Battery       config.BatteryConfig `json:"battery"`
	CyclesPerDay  []int                `json:"cycles_per_day" binding:"required"`
	SOCCeilingMWh float64              `json:"soc_ceiling_mwh,omitempty"`
	// Baseline, when set, is valued alongside and used to rank the scenarios.
	Baseline *baseline.Params `json:"baseline,omitempty"`
}

// BaselineRequest values the daily min/max baseline. Zero params use the
// 100 MW / 100 MWh / 85% default.
type BaselineRequest struct {
	PriceSeries
	Params baseline.Params `json:"params"`
}

// SeriesQuery selects the bucket width of a run's resampled revenue.
type SeriesQuery struct {
	Granularity string `form:"granularity,default=day"`
}
