package models

import (
	"time"

	"battery-arbitrage/internal/analysis"
	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/data"
	"battery-arbitrage/internal/report"

	"github.com/shopspring/decimal"
)

// RunResponse represents one optimisation run
type RunResponse struct {
	ID               string             `json:"id"`
	State            string             `json:"state"`
	SolverStatus     string             `json:"solver_status"`
	CyclesPerDay     int                `json:"cycles_per_day"`
	Objective        float64            `json:"objective"`
	Periods          int                `json:"periods"`
	SolveDurationMS  float64            `json:"solve_duration_ms"`
	CreatedAt        time.Time          `json:"created_at"`
	Window           *TimeWindow        `json:"window,omitempty"`
	Summary          *report.Summary    `json:"summary,omitempty"`
	ChargeWindows    []ChargeWindow     `json:"charge_windows,omitempty"`
	DischargeWindows []DischargeWindow  `json:"discharge_windows,omitempty"`
	Error            *ErrorDetail       `json:"error,omitempty"`
	Results          []report.LedgerRow `json:"results,omitempty"`
}

// OptimizeResponse is returned by POST /api/v1/optimize
type OptimizeResponse struct {
	Run        RunResponse         `json:"run"`
	PriceStats analysis.PriceStats `json:"price_stats"`
	Cleaning   data.CleanReport    `json:"cleaning"`
}

// ScenariosResponse is returned by POST /api/v1/optimize/scenarios
type ScenariosResponse struct {
	Scenarios  []RunResponse             `json:"scenarios"`
	Ranking    []analysis.RankedScenario `json:"ranking"`
	Baseline   *BaselineResponse         `json:"baseline,omitempty"`
	PriceStats analysis.PriceStats       `json:"price_stats"`
	Cleaning   data.CleanReport          `json:"cleaning"`
}

// BaselineResponse is returned by POST /api/v1/baseline
type BaselineResponse struct {
	Params baseline.Params          `json:"params"`
	Total  float64                  `json:"total_revenue"`
	Annual []baseline.AnnualRevenue `json:"annual"`
	Daily  []baseline.DailyRevenue  `json:"daily,omitempty"`
}

// ResultsResponse is returned by GET /api/v1/runs/:id/results
type ResultsResponse struct {
	ID      string             `json:"id"`
	Results []report.LedgerRow `json:"results"`
}

// SeriesResponse is returned by GET /api/v1/runs/:id/series
type SeriesResponse struct {
	ID          string          `json:"id"`
	Granularity string          `json:"granularity"`
	Total       decimal.Decimal `json:"total_revenue"`
	Buckets     []report.Bucket `json:"buckets"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ChargeWindow is the span of one day's charging with its average cost
type ChargeWindow struct {
	TimeWindow
	AverageCostPerMWh float64 `json:"average_cost_per_mwh"` // Weighted by energy
	EnergyMWh         float64 `json:"energy_mwh"`
}

// DischargeWindow is the span of one day's discharging with its average price
type DischargeWindow struct {
	TimeWindow
	AveragePricePerMWh float64 `json:"average_price_per_mwh"` // Weighted by energy
	EnergyMWh          float64 `json:"energy_mwh"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	File  string               `json:"file"`
	Specs config.BatteryConfig `json:"specs"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
