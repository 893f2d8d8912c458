package lp

import "math"

// presolved is a model with singleton rows folded into bounds and fixed
// variables substituted out of the remaining rows. Costs are in the
// minimisation sense.
type presolved struct {
	lo, hi []float64
	cost   []float64
	rows   []row
}

type row struct {
	terms []Term
	op    Op
	rhs   float64
}

func (p *presolved) fixed(j int) bool { return p.hi[j]-p.lo[j] <= snapTol }

// presolve repeats two reductions until neither applies: variables whose
// bounds meet are substituted, and rows left with a single variable become
// bounds on it.
func presolve(m *Model) (*presolved, error) {
	n := len(m.Vars)
	p := &presolved{
		lo:   make([]float64, n),
		hi:   make([]float64, n),
		cost: make([]float64, n),
		rows: make([]row, 0, len(m.Constraints)),
	}
	for i, v := range m.Vars {
		p.lo[i], p.hi[i] = v.Lower, v.Upper
	}
	for i, c := range m.Objective {
		if m.Sense == Maximize {
			c = -c
		}
		p.cost[i] = c
	}
	for _, c := range m.Constraints {
		p.rows = append(p.rows, row{terms: mergeTerms(c.Terms), op: c.Op, rhs: c.RHS})
	}

	lo, hi := p.lo, p.hi
	for changed := true; changed; {
		changed = false
		kept := p.rows[:0]
		for _, r := range p.rows {
			terms := r.terms[:0:0]
			rhs := r.rhs
			for _, t := range r.terms {
				if p.fixed(t.Var) {
					rhs -= t.Coef * lo[t.Var]
					continue
				}
				terms = append(terms, t)
			}
			switch len(terms) {
			case 0:
				if !holds(0, r.op, rhs) {
					return nil, ErrInfeasible
				}
				changed = true
			case 1:
				t := terms[0]
				val := rhs / t.Coef
				op := r.op
				if t.Coef < 0 {
					op = flip(op)
				}
				switch op {
				case EQ:
					lo[t.Var] = math.Max(lo[t.Var], val)
					hi[t.Var] = math.Min(hi[t.Var], val)
				case LE:
					hi[t.Var] = math.Min(hi[t.Var], val)
				case GE:
					lo[t.Var] = math.Max(lo[t.Var], val)
				}
				if lo[t.Var] > hi[t.Var]+snapTol {
					return nil, ErrInfeasible
				}
				if hi[t.Var] < lo[t.Var] {
					hi[t.Var] = lo[t.Var]
				}
				changed = true
			default:
				kept = append(kept, row{terms: terms, op: r.op, rhs: rhs})
			}
		}
		p.rows = kept
	}
	return p, nil
}

// settle returns the value of a variable that appears in no row: the bound
// its cost prefers.
func (p *presolved) settle(j int) (float64, error) {
	if p.fixed(j) || p.cost[j] >= 0 {
		return p.lo[j], nil
	}
	if math.IsInf(p.hi[j], 1) {
		return 0, ErrUnbounded
	}
	return p.hi[j], nil
}

func mergeTerms(terms []Term) []Term {
	out := make([]Term, 0, len(terms))
	pos := make(map[int]int, len(terms))
	for _, t := range terms {
		if i, ok := pos[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	nz := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			nz = append(nz, t)
		}
	}
	return nz
}

func holds(lhs float64, op Op, rhs float64) bool {
	switch op {
	case EQ:
		return math.Abs(lhs-rhs) <= snapTol
	case LE:
		return lhs <= rhs+snapTol
	default:
		return lhs >= rhs-snapTol
	}
}

func flip(op Op) Op {
	switch op {
	case LE:
		return GE
	case GE:
		return LE
	default:
		return op
	}
}
