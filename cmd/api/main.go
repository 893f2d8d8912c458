package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battery-arbitrage/internal/api"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/store"
	"battery-arbitrage/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("API_CONFIG"), "Optional server config file (YAML)")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if info, err := os.Stat(cfg.BatteryDir); err != nil || !info.IsDir() {
		logger.Warn("Battery directory not found", zap.String("dir", cfg.BatteryDir), zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	runs := store.New(cfg.RunTTL, cfg.MaxStoredRuns)
	go runs.Run(ctx, 0)

	solver := lp.NewAuto()
	solver.Dense.MaxInFlight = cfg.MaxInFlightSolves
	solver.Dense.MaxCells = cfg.MaxModelCells

	router := api.NewRouter(api.Deps{
		Config: cfg,
		Solver: solver,
		Options: optimizer.Options{
			Timeout:     cfg.SolveTimeout,
			Parallelism: cfg.Parallelism,
		},
		Runs:   runs,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Starting API server",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.Duration("solve_timeout", cfg.SolveTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited properly")
}
