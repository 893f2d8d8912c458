package lp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultTolerance      = 1e-10
	defaultFeasibilityTol = 1e-6
	// snapTol pulls values that sit within numerical noise of a bound onto it,
	// so that callers can use exact comparisons such as "x > 0".
	snapTol = 1e-9

	// DefaultMaxCells bounds the dense tableau at 64 MiB of float64s.
	DefaultMaxCells = 1 << 23
)

// Simplex solves models with gonum's dense simplex implementation.
// The zero value is ready to use.
//
// Time and memory grow with the square of the model size, so Simplex is
// meant for small models: two days of half-hourly dispatch take seconds
// and four days take well over a minute. Network-structured models belong
// on Network.
type Simplex struct {
	// Tolerance on reduced costs passed to the simplex routine.
	Tolerance float64
	// FeasibilityTol is the largest constraint violation accepted when the
	// solution is checked against the original model.
	FeasibilityTol float64
	// MaxCells caps rows × columns of the tableau. Larger models fail with
	// a ReasonTooLarge SolverError before anything is allocated. Zero uses
	// DefaultMaxCells; a negative value disables the check.
	MaxCells int
	// MaxInFlight bounds concurrent solves. The gonum routine cannot be
	// interrupted, so a solve abandoned on timeout holds its slot until it
	// finishes. Zero uses GOMAXPROCS.
	MaxInFlight int

	once  sync.Once
	slots chan struct{}

	// dense runs the simplex routine; nil uses standardForm.solve.
	dense func(sf *standardForm, tol float64) ([]float64, error)
}

func NewSimplex() *Simplex {
	return &Simplex{Tolerance: defaultTolerance, FeasibilityTol: defaultFeasibilityTol}
}

func (s *Simplex) Name() string { return "gonum-simplex" }

// InFlight reports how many solves currently hold a slot, including those
// whose caller has stopped waiting.
func (s *Simplex) InFlight() int {
	s.once.Do(s.init)
	return len(s.slots)
}

// Solve runs the simplex method in its own goroutine so that ctx can abort
// the wait. An abandoned solve writes only to its own buffered channel and
// releases its slot when it returns.
func (s *Simplex) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(ctx)
	}
	if err := m.Check(); err != nil {
		return nil, &SolverError{Reason: "invalid model", Err: err}
	}

	sf, err := toStandardForm(m, s.maxCells())
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	type outcome struct {
		x   []float64
		err error
	}
	dense := s.dense
	if dense == nil {
		dense = (*standardForm).solve
	}
	done := make(chan outcome, 1)
	go func() {
		defer s.release()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &SolverError{Reason: "panic", Err: fmt.Errorf("%v", r)}}
			}
		}()
		x, err := dense(sf, s.tolerance())
		done <- outcome{x: x, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, contextError(ctx)
	case out = <-done:
	}
	if out.err != nil {
		return nil, out.err
	}

	x := sf.unshift(out.x)
	snapToBounds(m, x)
	if v := m.Violation(x); v > s.feasibilityTol() {
		return nil, &SolverError{Reason: "numerical", Err: fmt.Errorf("solution violates model by %g", v)}
	}
	return &Solution{
		Status:    StatusOptimal,
		Values:    x,
		Objective: m.Evaluate(x),
	}, nil
}

func (s *Simplex) init() {
	n := s.MaxInFlight
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	s.slots = make(chan struct{}, n)
}

func (s *Simplex) acquire(ctx context.Context) error {
	s.once.Do(s.init)
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return contextError(ctx)
	}
}

func (s *Simplex) release() { <-s.slots }

func (s *Simplex) maxCells() int {
	if s.MaxCells == 0 {
		return DefaultMaxCells
	}
	return s.MaxCells
}

func (s *Simplex) tolerance() float64 {
	if s == nil || s.Tolerance <= 0 {
		return defaultTolerance
	}
	return s.Tolerance
}

func (s *Simplex) feasibilityTol() float64 {
	if s == nil || s.FeasibilityTol <= 0 {
		return defaultFeasibilityTol
	}
	return s.FeasibilityTol
}

// standardForm is min c·x' s.t. A x' = b, x' >= 0 with x = lo + x' for the
// free variables. Fixed variables are kept aside in fixed.
type standardForm struct {
	n     int       // original variable count
	lo    []float64 // presolved lower bounds
	fixed []bool
	col   []int // original variable -> column, -1 when fixed

	c    []float64
	rows [][]float64
	b    []float64
}

// toStandardForm presolves and converts m. It refuses, before allocating
// the tableau, models whose rows × columns exceed maxCells.
func toStandardForm(m *Model, maxCells int) (*standardForm, error) {
	p, err := presolve(m)
	if err != nil {
		return nil, err
	}
	n := len(m.Vars)
	lo, hi, cost := p.lo, p.hi, p.cost

	appears := make([]bool, n)
	for _, r := range p.rows {
		for _, t := range r.terms {
			appears[t.Var] = true
		}
	}

	sf := &standardForm{n: n, lo: lo, fixed: make([]bool, n), col: make([]int, n)}
	cols := 0
	for j := 0; j < n; j++ {
		switch {
		case p.fixed(j):
			sf.fixed[j] = true
		case !appears[j] && math.IsInf(hi[j], 1):
			// Only its lower bound binds it.
			if cost[j] < 0 {
				return nil, ErrUnbounded
			}
			sf.fixed[j] = true
		}
		if sf.fixed[j] {
			sf.col[j] = -1
			continue
		}
		sf.col[j] = cols
		cols++
	}

	slacks, bounded := 0, 0
	for _, r := range p.rows {
		if r.op != EQ {
			slacks++
		}
	}
	for j := 0; j < n; j++ {
		if sf.col[j] >= 0 && !math.IsInf(hi[j], 1) {
			bounded++
		}
	}
	width := cols + slacks + bounded
	height := len(p.rows) + bounded
	if maxCells > 0 && height*width > maxCells {
		return nil, &SolverError{
			Reason: ReasonTooLarge,
			Err:    fmt.Errorf("%d x %d tableau exceeds %d cells", height, width, maxCells),
		}
	}

	sf.c = make([]float64, width)
	for j := 0; j < n; j++ {
		if sf.col[j] >= 0 {
			sf.c[sf.col[j]] = cost[j]
		}
	}

	slack := cols
	for _, r := range p.rows {
		a := make([]float64, width)
		rhs := r.rhs
		for _, t := range r.terms {
			a[sf.col[t.Var]] += t.Coef
			rhs -= t.Coef * lo[t.Var]
		}
		switch r.op {
		case LE:
			a[slack] = 1
			slack++
		case GE:
			a[slack] = -1
			slack++
		}
		sf.addRow(a, rhs)
	}
	for j := 0; j < n; j++ {
		if sf.col[j] < 0 || math.IsInf(hi[j], 1) {
			continue
		}
		a := make([]float64, width)
		a[sf.col[j]] = 1
		a[slack] = 1
		slack++
		sf.addRow(a, hi[j]-lo[j])
	}
	return sf, nil
}

// addRow stores a row with a non-negative right-hand side.
func (sf *standardForm) addRow(a []float64, rhs float64) {
	if rhs < 0 {
		for i := range a {
			a[i] = -a[i]
		}
		rhs = -rhs
	}
	sf.rows = append(sf.rows, a)
	sf.b = append(sf.b, rhs)
}

func (sf *standardForm) solve(tol float64) ([]float64, error) {
	width := len(sf.c)
	if width == 0 {
		return nil, nil
	}
	if len(sf.rows) > width {
		return nil, &SolverError{Reason: "overdetermined", Err: fmt.Errorf("%d rows for %d columns", len(sf.rows), width)}
	}
	data := make([]float64, 0, len(sf.rows)*width)
	for _, r := range sf.rows {
		data = append(data, r...)
	}
	A := mat.NewDense(len(sf.rows), width, data)

	_, x, err := gonumlp.Simplex(sf.c, A, sf.b, tol, nil)
	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, gonumlp.ErrInfeasible):
		return nil, ErrInfeasible
	case errors.Is(err, gonumlp.ErrUnbounded):
		return nil, ErrUnbounded
	default:
		return nil, &SolverError{Reason: "simplex", Err: err}
	}
}

// unshift maps a standard-form solution back to the original variables.
func (sf *standardForm) unshift(xs []float64) []float64 {
	x := make([]float64, sf.n)
	for j := 0; j < sf.n; j++ {
		x[j] = sf.lo[j]
		if c := sf.col[j]; c >= 0 {
			x[j] += xs[c]
		}
	}
	return x
}

func snapToBounds(m *Model, x []float64) {
	for i, v := range m.Vars {
		if math.Abs(x[i]-v.Lower) <= snapTol {
			x[i] = v.Lower
		}
		if !math.IsInf(v.Upper, 1) && math.Abs(x[i]-v.Upper) <= snapTol {
			x[i] = v.Upper
		}
	}
}
