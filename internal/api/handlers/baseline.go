package handlers

import (
	"net/http"
	"time"

	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/baseline"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaselineHandler values the daily buy-low/sell-high baseline.
type BaselineHandler struct {
	loc *time.Location
	log *zap.Logger
}

func NewBaselineHandler(loc *time.Location, logger *zap.Logger) *BaselineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaselineHandler{loc: loc, log: logger}
}

// Baseline handles POST /api/v1/baseline
func (h *BaselineHandler) Baseline(c *gin.Context) {
	var req models.BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	series, _, loc, err := toSeries(req.PriceSeries)
	if err != nil {
		respondError(c, err)
		return
	}
	if loc == nil {
		loc = h.loc
	}
	params := req.Params
	if params == (baseline.Params{}) {
		params = baseline.DefaultParams()
	}

	res, err := baseline.Run(series, params, loc)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Debug("baseline valued",
		zap.Int("days", len(res.Daily)),
		zap.Float64("total", res.Total()),
	)
	c.JSON(http.StatusOK, models.BaselineResponse{
		Params: params,
		Total:  res.Total(),
		Annual: res.Annual,
		Daily:  res.Daily,
	})
}
