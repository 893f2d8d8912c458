package lp

import (
	"context"
	"errors"
	"fmt"
)

// Status is the outcome class of a solve.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusInfeasible Status = "INFEASIBLE"
	StatusUnbounded  Status = "UNBOUNDED"
	StatusError      Status = "SOLVER_ERROR"
)

var (
	// ErrInfeasible means the constraints cannot be satisfied together.
	// It is never relaxed automatically.
	ErrInfeasible = errors.New("lp: model is infeasible")
	ErrUnbounded  = errors.New("lp: model is unbounded")
)

// Reasons carried by SolverError.
const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
	ReasonTooLarge  = "model too large"
)

// SolverError is a failed or aborted solve.
type SolverError struct {
	Reason string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lp: solver error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("lp: solver error (%s)", e.Reason)
}

func (e *SolverError) Unwrap() error { return e.Err }

// Timeout reports whether the solve exceeded its time budget.
func (e *SolverError) Timeout() bool { return e.Reason == ReasonTimeout }

// Solution is an optimal assignment. Values is indexed like Model.Vars and
// Objective is in the model's own sense.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Solver submits a model to an LP back-end. Implementations must return
// either an optimal Solution, ErrInfeasible, ErrUnbounded or a *SolverError,
// and must honour ctx.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// StatusOf classifies the error returned by Solve.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOptimal
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	case errors.Is(err, ErrUnbounded):
		return StatusUnbounded
	default:
		return StatusError
	}
}

// contextError maps a finished context to a SolverError.
func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &SolverError{Reason: ReasonTimeout, Err: ctx.Err()}
	}
	return &SolverError{Reason: ReasonCancelled, Err: ctx.Err()}
}
