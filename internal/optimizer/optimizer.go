// Package optimizer turns a price series and a battery specification into a
// profit-maximising charge/discharge schedule by way of a linear program.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle position of a run.
type State string

const (
	StateBuilt     State = "BUILT"
	StateSolved    State = "SOLVED"
	StateExtracted State = "EXTRACTED"
	StateAborted   State = "ABORTED"
)

const DefaultTimeout = 60 * time.Second

type Options struct {
	// Timeout bounds each solve. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Parallelism caps concurrent scenarios. Zero means one per scenario.
	Parallelism int
	Build       BuildOptions
}

// Run is the outcome of one optimisation. Err is set when State is
// StateAborted; Results only when State is StateExtracted.
type Run struct {
	ID        uuid.UUID
	Cycles    int
	State     State
	Status    lp.Status
	Objective float64
	Results   []model.Result
	Periods   int
	// Period is the length of each period of the solved series.
	Period time.Duration
	// Location is the calendar the run's days were grouped in. Nil means
	// each timestamp's own location.
	Location      *time.Location
	SolveDuration time.Duration
	CreatedAt     time.Time
	Err           error
}

// Optimizer runs dispatch optimisations against a pluggable LP solver.
// It holds no per-run state and is safe for concurrent use.
type Optimizer struct {
	solver lp.Solver
	log    *zap.Logger
	opts   Options
}

func New(solver lp.Solver, logger *zap.Logger, opts Options) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Optimizer{solver: solver, log: logger, opts: opts}
}

func (o *Optimizer) Timeout() time.Duration { return o.opts.Timeout }

// Run builds, solves and extracts a single schedule. Validation failures are
// returned before any solve with a nil Run. Every other failure is terminal
// for the run: the Run is returned in StateAborted and its Err is also
// returned.
func (o *Optimizer) Run(ctx context.Context, series model.Series, spec model.BatterySpec, cycles int) (*Run, error) {
	if o.solver == nil {
		return nil, errors.New("optimizer: solver is nil")
	}
	problem, err := Build(series, spec, cycles, o.opts.Build)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New(),
		Cycles:    cycles,
		State:     StateBuilt,
		Periods:   series.Len(),
		Period:    series.PeriodLength(),
		Location:  o.opts.Build.Location,
		CreatedAt: time.Now().UTC(),
	}
	log := o.log.With(
		zap.String("run_id", run.ID.String()),
		zap.Int("cycles", cycles),
		zap.Int("periods", run.Periods),
	)
	log.Debug("model built",
		zap.Int("variables", problem.Model.NumVars()),
		zap.Int("constraints", len(problem.Model.Constraints)),
		zap.Int("days", len(problem.Days)),
		zap.Float64("period_hours", problem.PeriodHours),
	)

	solveCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	sol, err := o.solver.Solve(solveCtx, problem.Model)
	run.SolveDuration = time.Since(start)
	run.Status = lp.StatusOf(err)
	if err != nil {
		run.State = StateAborted
		run.Err = fmt.Errorf("solve (cycles=%d): %w", cycles, err)
		log.Warn("solve failed",
			zap.String("solver", o.solver.Name()),
			zap.String("status", string(run.Status)),
			zap.Duration("duration", run.SolveDuration),
			zap.Error(err),
		)
		return run, run.Err
	}
	run.State = StateSolved
	run.Objective = sol.Objective

	results, err := Extract(problem, sol)
	if err != nil {
		run.State = StateAborted
		run.Status = lp.StatusError
		run.Err = err
		log.Error("extract failed", zap.Error(err))
		return run, err
	}
	run.Results = results
	run.State = StateExtracted

	log.Info("run complete",
		zap.String("solver", o.solver.Name()),
		zap.Float64("objective", run.Objective),
		zap.Duration("duration", run.SolveDuration),
	)
	return run, nil
}

// RunScenarios runs one independent optimisation per cycles value. Each
// scenario has its own model and solve; a failure is recorded on that
// scenario's Run and does not stop the others. A validation failure of the
// shared inputs is returned before any solve.
//
// The returned slice is ordered like cycles.
func (o *Optimizer) RunScenarios(ctx context.Context, series model.Series, spec model.BatterySpec, cycles []int) ([]*Run, error) {
	if len(cycles) == 0 {
		return nil, &model.ValidationError{Field: "cycles_per_day", Reason: "no scenarios requested"}
	}
	for _, c := range cycles {
		if err := Validate(series, spec, c); err != nil {
			return nil, err
		}
	}

	runs := make([]*Run, len(cycles))
	g, gctx := errgroup.WithContext(ctx)
	if o.opts.Parallelism > 0 {
		g.SetLimit(o.opts.Parallelism)
	}
	for i, c := range cycles {
		i, c := i, c
		g.Go(func() error {
			run, err := o.Run(gctx, series, spec, c)
			if run == nil {
				// Inputs were validated above; only a programming error lands here.
				return err
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
