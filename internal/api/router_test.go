package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presetYAML = `battery:
  name: ideal
  max_capacity_mwh: 100
  charge_power_limit_mw: 100
  discharge_power_limit_mw: 100
  charge_efficiency: 1
  discharge_efficiency: 1
  min_soc: 0
  max_soc: 1
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ideal.yaml"), []byte(presetYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("battery: ["), 0o644))

	return NewRouter(Deps{
		Config: &config.ServerConfig{
			BatteryDir:     dir,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Solver:  lp.NewAuto(),
		Options: optimizer.Options{Timeout: 30 * time.Second},
		Runs:    store.New(time.Hour, 16),
	})
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func prices(start time.Time, values ...float64) []map[string]interface{} {
	out := make([]map[string]interface{}, len(values))
	for i, v := range values {
		out[i] = map[string]interface{}{
			"timestamp": start.Add(time.Duration(i) * 30 * time.Minute).Format(time.RFC3339),
			"price":     v,
		}
	}
	return out
}

func idealBattery() map[string]interface{} {
	return map[string]interface{}{
		"max_capacity_mwh":         100,
		"charge_power_limit_mw":    100,
		"discharge_power_limit_mw": 100,
		"charge_efficiency":        1,
		"discharge_efficiency":     1,
		"min_soc":                  0,
		"max_soc":                  1,
	}
}

var day = time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOptimizeAndFetchRun(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"prices":          prices(day, 10, 100),
		"battery":         idealBattery(),
		"cycles_per_day":  1,
		"include_results": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.OptimizeResponse
	decode(t, w, &resp)
	run := resp.Run
	assert.Equal(t, string(optimizer.StateExtracted), run.State)
	assert.Equal(t, string(lp.StatusOptimal), run.SolverStatus)
	assert.InDelta(t, 10000, run.Objective, 1e-6)
	assert.Equal(t, 2, run.Periods)
	require.Len(t, run.Results, 2)
	assert.InDelta(t, 100, run.Results[1].DischargeMW, 1e-6)
	assert.Empty(t, run.ChargeWindows)
	require.Len(t, run.DischargeWindows, 1)
	assert.InDelta(t, 50, run.DischargeWindows[0].EnergyMWh, 1e-6)
	assert.InDelta(t, 100, run.DischargeWindows[0].AveragePricePerMWh, 1e-6)
	require.NotNil(t, run.Window)
	assert.True(t, run.Window.End.Equal(day.Add(time.Hour)))
	assert.Equal(t, 2, resp.PriceStats.Count)
	assert.Equal(t, 2, resp.Cleaning.Kept)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.RunResponse
	decode(t, w, &stored)
	assert.Equal(t, run.ID, stored.ID)
	assert.Empty(t, stored.Results)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results models.ResultsResponse
	decode(t, w, &results)
	require.Len(t, results.Results, 2)
	assert.Equal(t, model.ActionDischarging, results.Results[1].Action)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID+"/series?granularity=month", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var series models.SeriesResponse
	decode(t, w, &series)
	assert.Equal(t, "month", series.Granularity)
	require.Len(t, series.Buckets, 1)
	assert.Equal(t, 2, series.Buckets[0].Periods)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID+"/series?granularity=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoredRunKeepsRequestCalendar(t *testing.T) {
	r := newTestRouter(t)

	// 23:30 UTC on 31 Jan and 00:30 UTC on 1 Feb fall on the same Tokyo day.
	// Full power in the first and last periods uses the whole 100 MWh
	// daily allowance.
	start := time.Date(2023, 1, 31, 23, 30, 0, 0, time.UTC)
	b := idealBattery()
	b["max_capacity_mwh"] = 300
	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"prices":          prices(start, 50, 5, 100),
		"timezone":        "Asia/Tokyo",
		"battery":         b,
		"soc_ceiling_mwh": 300,
		"cycles_per_day":  2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.OptimizeResponse
	decode(t, w, &resp)
	assert.InDelta(t, 15000, resp.Run.Objective, 1e-6)
	require.Len(t, resp.Run.DischargeWindows, 1)
	assert.InDelta(t, 100, resp.Run.DischargeWindows[0].EnergyMWh, 1e-6)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.Run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.RunResponse
	decode(t, w, &stored)
	require.Len(t, stored.DischargeWindows, 1)
	assert.InDelta(t, resp.Run.DischargeWindows[0].EnergyMWh, stored.DischargeWindows[0].EnergyMWh, 1e-9)
	assert.True(t, stored.DischargeWindows[0].Start.Equal(resp.Run.DischargeWindows[0].Start))
	assert.True(t, stored.DischargeWindows[0].End.Equal(resp.Run.DischargeWindows[0].End))
}

func TestSinglePeriodUsesRequestedPeriod(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"prices":         prices(day, 100),
		"period_minutes": 60,
		"battery":        idealBattery(),
		"cycles_per_day": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.OptimizeResponse
	decode(t, w, &resp)

	// One hour at 50 MW uses the whole 50 MWh daily allowance.
	assert.InDelta(t, 5000, resp.Run.Objective, 1e-6)
	require.NotNil(t, resp.Run.Window)
	assert.True(t, resp.Run.Window.End.Equal(day.Add(time.Hour)), resp.Run.Window.End)
	require.Len(t, resp.Run.DischargeWindows, 1)
	assert.True(t, resp.Run.DischargeWindows[0].End.Equal(day.Add(time.Hour)))
	assert.InDelta(t, 50, resp.Run.DischargeWindows[0].EnergyMWh, 1e-6)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.Run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.RunResponse
	decode(t, w, &stored)
	require.NotNil(t, stored.Window)
	assert.True(t, stored.Window.End.Equal(day.Add(time.Hour)))
}

func TestOptimizeErrors(t *testing.T) {
	r := newTestRouter(t)

	badEff := idealBattery()
	badEff["charge_efficiency"] = 1.5

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
		field  string
	}{
		{
			name:   "missing price",
			body:   map[string]interface{}{"prices": []map[string]interface{}{{"timestamp": day.Format(time.RFC3339)}}, "battery": idealBattery(), "cycles_per_day": 1},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "bad efficiency",
			body:   map[string]interface{}{"prices": prices(day, 10, 100), "battery": badEff, "cycles_per_day": 1},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
			field:  "charge_efficiency",
		},
		{
			name:   "zero cycles",
			body:   map[string]interface{}{"prices": prices(day, 10, 100), "battery": idealBattery(), "cycles_per_day": 0},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
			field:  "cycles_per_day",
		},
		{
			name:   "unknown timezone",
			body:   map[string]interface{}{"prices": prices(day, 10, 100), "battery": idealBattery(), "cycles_per_day": 1, "timezone": "Mars/Olympus"},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
			field:  "timezone",
		},
		{
			name:   "unknown preset",
			body:   map[string]interface{}{"prices": prices(day, 10, 100), "battery_file": "../ideal", "cycles_per_day": 1},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
			field:  "battery_file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/optimize", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp models.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, resp.Error.Details["field"])
			}
		})
	}
}

func TestOptimizeInfeasibleKeepsRun(t *testing.T) {
	r := newTestRouter(t)

	// The initial half-full charge is above the 30% ceiling.
	b := idealBattery()
	b["max_capacity_mwh"] = 200
	b["max_soc"] = 0.3

	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"prices":         prices(day, 10, 100),
		"battery":        b,
		"cycles_per_day": 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var resp models.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "INFEASIBLE", resp.Error.Code)
	id, ok := resp.Error.Details["run_id"].(string)
	require.True(t, ok)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run models.RunResponse
	decode(t, w, &run)
	assert.Equal(t, string(optimizer.StateAborted), run.State)
	assert.Equal(t, string(lp.StatusInfeasible), run.SolverStatus)
	require.NotNil(t, run.Error)
	assert.Equal(t, "INFEASIBLE", run.Error.Code)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/results", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRunLookupErrors(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/runs/6f1c7c1e-3f7c-4c5b-9d55-4b9a1c2d3e4f", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScenariosWithBaseline(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/optimize/scenarios", map[string]interface{}{
		"prices":         prices(day, 10, 10, 50, 50, 100, 100, 20, 20),
		"battery_file":   "ideal",
		"cycles_per_day": []int{1, 2},
		"baseline":       map[string]interface{}{"capacity_mwh": 100, "power_mw": 100, "round_trip_efficiency": 0.85},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ScenariosResponse
	decode(t, w, &resp)
	require.Len(t, resp.Scenarios, 2)
	assert.Equal(t, 1, resp.Scenarios[0].CyclesPerDay)
	assert.Equal(t, 2, resp.Scenarios[1].CyclesPerDay)
	assert.GreaterOrEqual(t, resp.Scenarios[1].Objective, resp.Scenarios[0].Objective-1e-6)

	require.NotNil(t, resp.Baseline)
	assert.InDelta(t, 7650, resp.Baseline.Total, 1e-6)

	require.Len(t, resp.Ranking, 2)
	assert.Equal(t, 1, resp.Ranking[0].Rank)
	assert.Equal(t, 2, resp.Ranking[1].Rank)
	assert.GreaterOrEqual(t, resp.Ranking[0].Revenue, resp.Ranking[1].Revenue)
}

func TestScenariosRejectsBadCycles(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/optimize/scenarios", map[string]interface{}{
		"prices":         prices(day, 10, 100),
		"battery":        idealBattery(),
		"cycles_per_day": []int{1, -1},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "cycles_per_day", resp.Error.Details["field"])
}

func TestBaselineDefaults(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/baseline", map[string]interface{}{
		"prices": prices(day, 10, 10, 50, 50, 100, 100, 20, 20),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BaselineResponse
	decode(t, w, &resp)
	assert.Equal(t, 100.0, resp.Params.CapacityMWh)
	require.Len(t, resp.Daily, 1)
	assert.Equal(t, 10.0, resp.Daily[0].BuyPrice)
	assert.Equal(t, 100.0, resp.Daily[0].SellPrice)
	assert.InDelta(t, 7650, resp.Total, 1e-6)
}

func TestListBatteries(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/batteries", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Batteries []models.BatteryInfo `json:"batteries"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Batteries, 1, "broken preset is skipped")
	assert.Equal(t, "ideal", resp.Batteries[0].ID)
	assert.Equal(t, 100.0, resp.Batteries[0].Specs.MaxCapacityMWh)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/optimize", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"prices": prices(day, 10, 100), "battery": idealBattery(), "cycles_per_day": 1,
	})
	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "battery_optimizer_runs_total")
}
