package handlers

import (
	"errors"
	"net/http"
	"time"

	"battery-arbitrage/internal/analysis"
	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/report"
	"battery-arbitrage/internal/store"
	"battery-arbitrage/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OptimizeHandler serves optimisation runs and their stored results.
type OptimizeHandler struct {
	solver    lp.Solver
	opts      optimizer.Options
	runs      *store.RunStore
	batteries *BatteryHandler
	log       *zap.Logger
}

// NewOptimizeHandler creates an optimize handler. opts supply the timeout,
// parallelism and default calendar; requests may override the calendar and
// SOC ceiling.
func NewOptimizeHandler(solver lp.Solver, opts optimizer.Options, runs *store.RunStore, batteries *BatteryHandler, logger *zap.Logger) *OptimizeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizeHandler{solver: solver, opts: opts, runs: runs, batteries: batteries, log: logger}
}

func (h *OptimizeHandler) optimizerFor(loc *time.Location, socCeiling float64) *optimizer.Optimizer {
	opts := h.opts
	if loc != nil {
		opts.Build.Location = loc
	}
	if socCeiling > 0 {
		opts.Build.SOCCeilingMWh = socCeiling
	}
	return optimizer.New(h.solver, h.log, opts)
}

// calendar is the location windows and baseline days are reported in.
func (h *OptimizeHandler) calendar(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return h.opts.Build.Location
}

func (h *OptimizeHandler) resolveBattery(file string, override config.BatteryConfig) (model.BatterySpec, error) {
	b, err := h.batteries.Resolve(file, override)
	if err != nil {
		return model.BatterySpec{}, err
	}
	return b.ToSpec(), nil
}

func (h *OptimizeHandler) keep(run *optimizer.Run) {
	telemetry.ObserveRun(run)
	h.runs.Put(run)
	telemetry.StoredRuns.Set(float64(h.runs.Len()))
}

// Optimize handles POST /api/v1/optimize
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	series, cleaning, loc, err := toSeries(req.PriceSeries)
	if err != nil {
		respondError(c, err)
		return
	}
	spec, err := h.resolveBattery(req.BatteryFile, req.Battery)
	if err != nil {
		respondError(c, err)
		return
	}

	run, err := h.optimizerFor(loc, req.SOCCeilingMWh).Run(c.Request.Context(), series, spec, req.CyclesPerDay)
	if run == nil {
		respondError(c, err)
		return
	}
	h.keep(run)
	if err != nil {
		status, detail := classify(err)
		if detail.Details == nil {
			detail.Details = map[string]interface{}{}
		}
		detail.Details["run_id"] = run.ID.String()
		c.JSON(status, models.ErrorResponse{Error: detail})
		return
	}

	c.JSON(http.StatusOK, models.OptimizeResponse{
		Run:        buildRunResponse(run, req.IncludeResults),
		PriceStats: analysis.Describe(series, h.calendar(loc)),
		Cleaning:   cleaning,
	})
}

// Scenarios handles POST /api/v1/optimize/scenarios. Each cycles value is
// solved independently; failed scenarios are reported in place.
func (h *OptimizeHandler) Scenarios(c *gin.Context) {
	var req models.ScenariosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	series, cleaning, loc, err := toSeries(req.PriceSeries)
	if err != nil {
		respondError(c, err)
		return
	}
	spec, err := h.resolveBattery(req.BatteryFile, req.Battery)
	if err != nil {
		respondError(c, err)
		return
	}
	cal := h.calendar(loc)

	var base *models.BaselineResponse
	baseRevenue := 0.0
	if req.Baseline != nil {
		res, err := baseline.Run(series, *req.Baseline, cal)
		if err != nil {
			respondError(c, err)
			return
		}
		baseRevenue = res.Total()
		base = &models.BaselineResponse{Params: *req.Baseline, Total: baseRevenue, Annual: res.Annual}
	}

	runs, err := h.optimizerFor(loc, req.SOCCeilingMWh).RunScenarios(c.Request.Context(), series, spec, req.CyclesPerDay)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.ScenariosResponse{
		Scenarios:  make([]models.RunResponse, 0, len(runs)),
		Baseline:   base,
		PriceStats: analysis.Describe(series, cal),
		Cleaning:   cleaning,
	}
	scenarios := make([]analysis.Scenario, 0, len(runs))
	for _, run := range runs {
		h.keep(run)
		resp.Scenarios = append(resp.Scenarios, buildRunResponse(run, false))
		s := analysis.Scenario{Name: run.ID.String(), Cycles: run.Cycles}
		if run.Err != nil {
			s.Err = run.Err.Error()
		} else {
			s.Revenue = optimizer.TotalRevenue(run.Results)
		}
		scenarios = append(scenarios, s)
	}
	resp.Ranking = analysis.RankByRevenue(scenarios, baseRevenue)

	c.JSON(http.StatusOK, resp)
}

func (h *OptimizeHandler) lookup(c *gin.Context) (*optimizer.Run, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, errors.New("run id must be a UUID"))
		return nil, false
	}
	run, ok := h.runs.Get(id)
	if !ok {
		notFound(c, "run", raw)
		return nil, false
	}
	return run, true
}

// GetRun handles GET /api/v1/runs/:id
func (h *OptimizeHandler) GetRun(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, buildRunResponse(run, false))
}

// GetResults handles GET /api/v1/runs/:id/results
func (h *OptimizeHandler) GetResults(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	if run.Err != nil {
		respondError(c, run.Err)
		return
	}
	c.JSON(http.StatusOK, models.ResultsResponse{ID: run.ID.String(), Results: report.Ledger(run.Results)})
}

// GetSeries handles GET /api/v1/runs/:id/series?granularity=day|month|year
func (h *OptimizeHandler) GetSeries(c *gin.Context) {
	var q models.SeriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	g, err := report.ParseGranularity(q.Granularity)
	if err != nil {
		badRequest(c, err)
		return
	}
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	if run.Err != nil {
		respondError(c, run.Err)
		return
	}
	buckets := report.Resample(run.Results, g)
	c.JSON(http.StatusOK, models.SeriesResponse{
		ID:          run.ID.String(),
		Granularity: string(g),
		Total:       report.Total(buckets),
		Buckets:     buckets,
	})
}
