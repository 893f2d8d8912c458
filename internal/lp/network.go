package lp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNotNetwork is wrapped by the SolverError that Network returns for
// models it cannot express as a flow problem.
var ErrNotNetwork = errors.New("lp: model is not a network")

// Network solves linear programs that are minimum-cost flow problems once
// rows and columns are rescaled. After presolve every variable must sit in
// at most two rows, and the rows must admit scale factors that turn each
// such variable's coefficients into +1 and -1. Rows then become nodes,
// variables become arcs and every inequality row gets a slack arc to a
// ground node.
//
// Battery dispatch models have this shape: the SOC chain links consecutive
// periods and each charge or discharge variable touches one SOC row and one
// daily row. A week of half-hourly periods solves in milliseconds.
type Network struct {
	// FeasibilityTol is the largest constraint violation accepted when the
	// solution is checked against the original model.
	FeasibilityTol float64
}

func NewNetwork() *Network {
	return &Network{FeasibilityTol: defaultFeasibilityTol}
}

func (n *Network) Name() string { return "network-simplex" }

// Solve runs in the caller's goroutine and polls ctx between pivots, so a
// timeout stops the work as well as the wait.
func (n *Network) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(ctx)
	}
	if err := m.Check(); err != nil {
		return nil, &SolverError{Reason: "invalid model", Err: err}
	}
	p, err := presolve(m)
	if err != nil {
		return nil, err
	}
	g, err := newFlowGraph(p)
	if err != nil {
		return nil, err
	}
	if err := g.solve(ctx); err != nil {
		return nil, err
	}

	x := g.values()
	snapToBounds(m, x)
	if v := m.Violation(x); v > n.feasibilityTol() {
		return nil, &SolverError{Reason: "numerical", Err: fmt.Errorf("solution violates model by %g", v)}
	}
	return &Solution{
		Status:    StatusOptimal,
		Values:    x,
		Objective: m.Evaluate(x),
	}, nil
}

func (n *Network) feasibilityTol() float64 {
	if n == nil || n.FeasibilityTol <= 0 {
		return defaultFeasibilityTol
	}
	return n.FeasibilityTol
}

// scaleTol is the relative disagreement allowed between two row scales
// derived along different paths.
const scaleTol = 1e-9

// flowGraph is the flow form of a presolved model. Node i is row i and the
// last node is ground. Variable j equals lo[j] + scale[j]*flow[arc[j]], or
// fixed[j] when arc[j] is -1.
type flowGraph struct {
	nodes  int
	supply []float64 // outflow minus inflow required at each node

	src, dst []int
	cap      []float64 // +Inf when uncapacitated
	cost     []float64
	flow     []float64

	lo    []float64
	fixed []float64
	arc   []int
	scale []float64
}

type entry struct {
	row  int
	coef float64
}

func newFlowGraph(p *presolved) (*flowGraph, error) {
	n, rows := len(p.lo), len(p.rows)
	ground := rows

	entries := make([][2]entry, n)
	count := make([]int8, n)
	byRow := make([][]int, rows)
	for i, r := range p.rows {
		for _, t := range r.terms {
			j := t.Var
			if count[j] == 2 {
				return nil, notNetwork("variable %d appears in more than two rows", j)
			}
			entries[j][count[j]] = entry{row: i, coef: t.Coef}
			count[j]++
			byRow[i] = append(byRow[i], j)
		}
	}

	// w[i] multiplies row i so that each two-row variable ends up with
	// coefficients of equal size and opposite sign.
	w := make([]float64, rows)
	var queue []int
	for seed := 0; seed < rows; seed++ {
		if w[seed] != 0 {
			continue
		}
		w[seed] = 1
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			for _, j := range byRow[i] {
				if count[j] != 2 {
					continue
				}
				a, b := entries[j][0], entries[j][1]
				if a.row != i {
					a, b = b, a
				}
				want := -w[i] * a.coef / b.coef
				switch {
				case w[b.row] == 0:
					w[b.row] = want
					queue = append(queue, b.row)
				case math.Abs(w[b.row]-want) > scaleTol*math.Abs(want):
					return nil, notNetwork("row %d has no consistent scale", b.row)
				}
			}
		}
	}

	g := &flowGraph{
		nodes:  rows + 1,
		supply: make([]float64, rows+1),
		lo:     p.lo,
		fixed:  make([]float64, n),
		arc:    make([]int, n),
		scale:  make([]float64, n),
	}
	for i, r := range p.rows {
		rhs, op := w[i]*r.rhs, r.op
		if w[i] < 0 {
			op = flip(op)
		}
		// inflow - outflow (op) rhs
		g.supply[i] -= rhs
		g.supply[ground] += rhs
		switch op {
		case LE:
			g.addArc(ground, i, math.Inf(1), 0)
		case GE:
			g.addArc(i, ground, math.Inf(1), 0)
		}
	}

	for j := 0; j < n; j++ {
		g.arc[j] = -1
		if count[j] == 0 {
			v, err := p.settle(j)
			if err != nil {
				return nil, err
			}
			g.fixed[j] = v
			continue
		}
		from, to, mag := ground, ground, 0.0
		for _, e := range entries[j][:count[j]] {
			s := w[e.row] * e.coef
			mag = math.Abs(s)
			if s > 0 {
				to = e.row
			} else {
				from = e.row
			}
		}
		if from == to {
			return nil, notNetwork("variable %d has coefficients of one sign", j)
		}
		// In flow units the variable is lo*mag plus the arc's flow.
		lower := p.lo[j] * mag
		g.scale[j] = 1 / mag
		g.arc[j] = g.addArc(from, to, (p.hi[j]-p.lo[j])*mag, p.cost[j]/mag)
		g.supply[from] -= lower
		g.supply[to] += lower
	}
	g.flow = make([]float64, len(g.src))
	return g, nil
}

func (g *flowGraph) addArc(from, to int, capacity, cost float64) int {
	g.src = append(g.src, from)
	g.dst = append(g.dst, to)
	g.cap = append(g.cap, capacity)
	g.cost = append(g.cost, cost)
	return len(g.src) - 1
}

// values maps the flow back to the model's variables.
func (g *flowGraph) values() []float64 {
	x := make([]float64, len(g.arc))
	for j, a := range g.arc {
		if a < 0 {
			x[j] = g.fixed[j]
			continue
		}
		x[j] = g.lo[j] + g.scale[j]*g.flow[a]
	}
	return x
}

func notNetwork(format string, args ...any) error {
	return &SolverError{
		Reason: "not a network",
		Err:    fmt.Errorf("%w: %s", ErrNotNetwork, fmt.Sprintf(format, args...)),
	}
}
