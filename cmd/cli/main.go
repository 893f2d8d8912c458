package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"battery-arbitrage/internal/analysis"
	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/config"
	"battery-arbitrage/internal/data"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/optimizer"
	"battery-arbitrage/internal/report"
	"battery-arbitrage/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "optimize":
		cmdOptimize(os.Args[2:])
	case "baseline":
		cmdBaseline(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	case "describe":
		cmdDescribe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli optimize --config examples/config.yaml --out results")
	fmt.Println("  cli baseline --config examples/config.yaml --out results")
	fmt.Println("  cli compare  --config examples/config.yaml --out results --chart results/annual.png")
	fmt.Println("  cli describe --prices input_data.csv")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - optimize writes optimized_results_cycles_N.csv and annual_opt_results_cycles_N.csv per scenario")
	fmt.Println("  - baseline writes daily_revenues.csv and annual_revenues.csv")
	fmt.Println("  - compare runs both and plots annual revenue per strategy")
}

// common holds the flags shared by every subcommand.
type common struct {
	cfgPath  *string
	prices   *string
	outDir   *string
	logLevel *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		cfgPath:  fs.String("config", "examples/config.yaml", "Path to YAML config"),
		prices:   fs.String("prices", "", "Price file (CSV or JSON); overrides data.prices_file"),
		outDir:   fs.String("out", "results", "Output directory"),
		logLevel: fs.String("log-level", "info", "Log level (debug, info, warn, error)"),
	}
}

type env struct {
	cfg    *config.Config
	series model.Series
	loc    *time.Location
	log    *zap.Logger
}

func setup(c common) *env {
	log, err := telemetry.NewLogger(*c.logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*c.cfgPath)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", *c.cfgPath), zap.Error(err))
	}
	path := cfg.Data.PricesFile
	if *c.prices != "" {
		path = *c.prices
	}
	if path == "" {
		log.Fatal("no price file: set data.prices_file or pass --prices")
	}

	series, _ := loadPrices(log, path, cfg.Data)
	loc, err := cfg.Optimization.Location()
	if err != nil {
		log.Fatal("invalid timezone", zap.Error(err))
	}
	if err := os.MkdirAll(*c.outDir, 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}
	return &env{cfg: cfg, series: series, loc: loc, log: log}
}

func loadPrices(log *zap.Logger, path string, dc config.DataConfig) (model.Series, data.CleanReport) {
	var (
		series   model.Series
		cleaning data.CleanReport
		err      error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		series, cleaning, err = data.LoadPricesJSON(path)
	} else {
		loc, lerr := dc.Location()
		if lerr != nil {
			log.Fatal("invalid data timezone", zap.Error(lerr))
		}
		series, cleaning, err = data.LoadPricesCSV(path, loc)
	}
	if err != nil {
		log.Fatal("failed to load prices", zap.String("path", path), zap.Error(err))
	}
	log.Info("prices loaded",
		zap.String("path", path),
		zap.Int("rows", cleaning.Rows),
		zap.Int("kept", cleaning.Kept),
		zap.Int("missing_price", cleaning.MissingPrice),
		zap.Int("bad_timestamp", cleaning.BadTimestamp),
		zap.Int("duplicates", cleaning.DuplicateTimes),
		zap.Bool("reordered", cleaning.Reordered),
	)
	return series, cleaning
}

func parseCycles(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("cycles: %q is not an integer", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func cmdOptimize(args []string) {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	c := commonFlags(fs)
	cycles := fs.String("cycles", "", "Comma-separated cycles per day; overrides optimization.cycles_per_day")
	_ = fs.Parse(args)

	e := setup(c)
	defer e.log.Sync()
	runs := e.optimize(*cycles, *c.outDir)
	for _, run := range runs {
		printRun(run)
	}
}

func cmdBaseline(args []string) {
	fs := flag.NewFlagSet("baseline", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	e := setup(c)
	defer e.log.Sync()
	res := e.baseline(*c.outDir)
	fmt.Printf("Baseline %d days, total revenue=%.2f\n", len(res.Daily), res.Total())
	for _, a := range res.Annual {
		fmt.Printf("  %d  %14.2f  (%.2f per kW)\n", a.Year, a.Revenue, a.RevenuePerKW)
	}
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	c := commonFlags(fs)
	cycles := fs.String("cycles", "", "Comma-separated cycles per day; overrides optimization.cycles_per_day")
	chart := fs.String("chart", "", "PNG chart path (default <out>/annual_revenue_comparison.png)")
	_ = fs.Parse(args)

	e := setup(c)
	defer e.log.Sync()

	base := e.baseline(*c.outDir)
	runs := e.optimize(*cycles, *c.outDir)

	lines := []report.AnnualLine{report.BaselineLine("Min/max baseline", base.Annual)}
	scenarios := make([]analysis.Scenario, 0, len(runs))
	for _, run := range runs {
		name := fmt.Sprintf("Optimised (%d cycles/day)", run.Cycles)
		s := analysis.Scenario{Name: name, Cycles: run.Cycles}
		if run.Err != nil {
			s.Err = run.Err.Error()
		} else {
			s.Revenue = optimizer.TotalRevenue(run.Results)
			lines = append(lines, report.BucketLine(name, report.Annual(run.Results)))
		}
		scenarios = append(scenarios, s)
	}

	path := *chart
	if path == "" {
		path = filepath.Join(*c.outDir, "annual_revenue_comparison.png")
	}
	if err := report.PlotAnnualComparison(path, lines...); err != nil {
		e.log.Error("failed to plot comparison", zap.String("path", path), zap.Error(err))
	} else {
		e.log.Info("chart written", zap.String("path", path))
	}

	fmt.Printf("%-4s %-28s %-16s %-10s\n", "rank", "strategy", "revenue", "uplift")
	fmt.Printf("%-4s %-28s %-16.2f %-10s\n", "-", "Min/max baseline", base.Total(), "-")
	for _, r := range analysis.RankByRevenue(scenarios, base.Total()) {
		if r.Err != "" {
			fmt.Printf("%-4d %-28s failed: %s\n", r.Rank, r.Name, r.Err)
			continue
		}
		fmt.Printf("%-4d %-28s %-16.2f %+.1f%%\n", r.Rank, r.Name, r.Revenue, r.UpliftVsBaseline*100)
	}
}

func cmdDescribe(args []string) {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	prices := fs.String("prices", "input_data.csv", "Price file (CSV or JSON)")
	tz := fs.String("timezone", "", "Timezone for naive timestamps and calendar days")
	_ = fs.Parse(args)

	log, err := telemetry.NewLogger("warn", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dc := config.DataConfig{Timezone: *tz}
	loc, err := dc.Location()
	if err != nil {
		log.Fatal("invalid timezone", zap.Error(err))
	}
	series, cleaning := loadPrices(log, *prices, dc)
	st := analysis.Describe(series, loc)

	fmt.Printf("rows=%d kept=%d dropped=%d\n", cleaning.Rows, cleaning.Kept, cleaning.Dropped())
	fmt.Printf("window  %s .. %s (%d days)\n", st.Start.Format("2006-01-02 15:04"), st.End.Format("2006-01-02 15:04"), st.Days)
	fmt.Printf("price   min=%.2f max=%.2f mean=%.2f std=%.2f\n", st.Min, st.Max, st.Mean, st.StdDev)
	fmt.Printf("spread  p95-p05=%.2f mean daily=%.2f negative periods=%d\n", st.SpreadP95P05, st.MeanDailySpread, st.NegativePeriods)
}

func (e *env) optimize(cyclesFlag, outDir string) []*optimizer.Run {
	cycles, err := parseCycles(cyclesFlag)
	if err != nil {
		e.log.Fatal("invalid --cycles", zap.Error(err))
	}
	if len(cycles) == 0 {
		cycles = e.cfg.Optimization.CyclesPerDay
	}
	opts, err := e.cfg.Optimization.Options()
	if err != nil {
		e.log.Fatal("invalid optimisation config", zap.Error(err))
	}

	opt := optimizer.New(lp.NewAuto(), e.log, opts)
	runs, err := opt.RunScenarios(context.Background(), e.series, e.cfg.Battery.ToSpec(), cycles)
	if err != nil {
		e.log.Fatal("optimisation rejected", zap.Error(err))
	}

	for _, run := range runs {
		if run.Err != nil {
			e.log.Error("scenario failed", zap.Int("cycles", run.Cycles), zap.Error(run.Err))
			continue
		}
		results := filepath.Join(outDir, fmt.Sprintf("optimized_results_cycles_%d.csv", run.Cycles))
		if err := report.SaveResultsCSV(results, run.Results); err != nil {
			e.log.Fatal("failed to write results", zap.String("path", results), zap.Error(err))
		}
		annual := filepath.Join(outDir, fmt.Sprintf("annual_opt_results_cycles_%d.csv", run.Cycles))
		if err := report.SaveAnnualCSV(annual, report.Annual(run.Results)); err != nil {
			e.log.Fatal("failed to write annual results", zap.String("path", annual), zap.Error(err))
		}
		e.log.Info("scenario written",
			zap.Int("cycles", run.Cycles),
			zap.String("results", results),
			zap.String("annual", annual),
		)
	}
	return runs
}

func (e *env) baseline(outDir string) *baseline.Result {
	res, err := baseline.Run(e.series, e.cfg.Baseline, e.loc)
	if err != nil {
		e.log.Fatal("baseline failed", zap.Error(err))
	}
	daily := filepath.Join(outDir, "daily_revenues.csv")
	if err := report.SaveDailyBaselineCSV(daily, res.Daily); err != nil {
		e.log.Fatal("failed to write daily revenues", zap.String("path", daily), zap.Error(err))
	}
	annual := filepath.Join(outDir, "annual_revenues.csv")
	if err := report.SaveBaselineAnnualCSV(annual, res.Annual); err != nil {
		e.log.Fatal("failed to write annual revenues", zap.String("path", annual), zap.Error(err))
	}
	return res
}

func printRun(run *optimizer.Run) {
	if run.Err != nil {
		fmt.Printf("cycles=%d %s (%s): %v\n", run.Cycles, run.State, run.Status, run.Err)
		return
	}
	s := report.Summarize(run.Results)
	fmt.Printf("cycles=%d status=%s periods=%d objective=%.2f revenue=%.2f solve=%s\n",
		run.Cycles, run.Status, s.Periods, run.Objective, s.TotalRevenue, run.SolveDuration)
	fmt.Printf("  charging=%d discharging=%d idle=%d final SOC=%.2f MWh\n",
		s.ChargingPeriods, s.DischargePeriods, s.IdlePeriods, s.FinalSOCMWh)
	for _, b := range report.Annual(run.Results) {
		fmt.Printf("  %s  %s\n", b.Label, b.Revenue.StringFixed(2))
	}
}
