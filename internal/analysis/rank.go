package analysis

import (
	"sort"
)

// Scenario is the headline outcome of one strategy over the same prices.
type Scenario struct {
	Name    string  `json:"name"`
	Cycles  int     `json:"cycles,omitempty"`
	Revenue float64 `json:"revenue"`
	// Failed scenarios are ranked last and carry the reason.
	Err string `json:"error,omitempty"`
}

type RankedScenario struct {
	Scenario
	Rank int `json:"rank"`
	// UpliftVsBaseline is Revenue/baseline - 1. Zero when the baseline
	// earned nothing.
	UpliftVsBaseline float64 `json:"uplift_vs_baseline"`
}

// RankByRevenue sorts scenarios descending by revenue, failed ones last, and
// reports each one's uplift over baselineRevenue.
func RankByRevenue(scenarios []Scenario, baselineRevenue float64) []RankedScenario {
	out := make([]RankedScenario, 0, len(scenarios))
	for _, s := range scenarios {
		r := RankedScenario{Scenario: s}
		if s.Err == "" && baselineRevenue != 0 {
			r.UpliftVsBaseline = s.Revenue/baselineRevenue - 1
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Err != "", out[j].Err != ""
		if fi != fj {
			return fj
		}
		return out[i].Revenue > out[j].Revenue
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
