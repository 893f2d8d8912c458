// Package api wires the HTTP handlers into a gin engine.
package api

import (
	"net/http"

	"battery-arbitrage/internal/api/handlers"
	"battery-arbitrage/internal/api/middleware"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Config  *config.ServerConfig
	Solver  lp.Solver
	Options optimizer.Options
	Runs    *store.RunStore
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &config.ServerConfig{}
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger(log))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	batteryHandler := handlers.NewBatteryHandler(cfg.BatteryDir, log)
	optimizeHandler := handlers.NewOptimizeHandler(d.Solver, d.Options, d.Runs, batteryHandler, log)
	baselineHandler := handlers.NewBaselineHandler(d.Options.Build.Location, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/optimize", optimizeHandler.Optimize)
		api.POST("/optimize/scenarios", optimizeHandler.Scenarios)
		api.POST("/baseline", baselineHandler.Baseline)

		api.GET("/runs/:id", optimizeHandler.GetRun)
		api.GET("/runs/:id/results", optimizeHandler.GetResults)
		api.GET("/runs/:id/series", optimizeHandler.GetSeries)

		api.GET("/batteries", batteryHandler.ListBatteries)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
