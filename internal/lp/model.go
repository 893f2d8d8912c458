// Package lp holds a small, solver-agnostic linear program representation
// and the adapters that hand it to a concrete LP solver.
package lp

import (
	"fmt"
	"math"
)

type Sense int

const (
	Maximize Sense = iota
	Minimize
)

type Op int

const (
	EQ Op = iota
	LE
	GE
)

func (o Op) String() string {
	switch o {
	case EQ:
		return "="
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// Var is a continuous decision variable with bounds. Upper may be +Inf.
type Var struct {
	Name  string
	Lower float64
	Upper float64
}

// Term is coef * x[Var].
type Term struct {
	Var  int
	Coef float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Model is a linear program over continuous variables. Variables are
// addressed by their index in Vars.
type Model struct {
	Name        string
	Sense       Sense
	Vars        []Var
	Objective   []float64
	Constraints []Constraint
}

func NewModel(name string, sense Sense) *Model {
	return &Model{Name: name, Sense: sense}
}

// AddVar appends a variable and returns its index.
func (m *Model) AddVar(name string, lower, upper float64) int {
	m.Vars = append(m.Vars, Var{Name: name, Lower: lower, Upper: upper})
	m.Objective = append(m.Objective, 0)
	return len(m.Vars) - 1
}

// SetObjective sets the objective coefficient of variable v.
func (m *Model) SetObjective(v int, coef float64) {
	m.Objective[v] = coef
}

func (m *Model) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

func (m *Model) NumVars() int { return len(m.Vars) }

// Evaluate returns the objective value of x.
func (m *Model) Evaluate(x []float64) float64 {
	v := 0.0
	for i, c := range m.Objective {
		v += c * x[i]
	}
	return v
}

// Check validates the structure of the model: finite coefficients, variable
// references in range and consistent bounds.
func (m *Model) Check() error {
	if len(m.Objective) != len(m.Vars) {
		return fmt.Errorf("lp: objective has %d coefficients for %d variables", len(m.Objective), len(m.Vars))
	}
	for i, v := range m.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 0) || math.IsInf(v.Upper, -1) {
			return fmt.Errorf("lp: variable %s has invalid bounds [%g, %g]", v.Name, v.Lower, v.Upper)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("lp: variable %s has lower bound %g above upper bound %g", v.Name, v.Lower, v.Upper)
		}
		if math.IsNaN(m.Objective[i]) || math.IsInf(m.Objective[i], 0) {
			return fmt.Errorf("lp: variable %s has non-finite objective coefficient", v.Name)
		}
	}
	for _, c := range m.Constraints {
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("lp: constraint %s has non-finite right-hand side", c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("lp: constraint %s references unknown variable %d", c.Name, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("lp: constraint %s has non-finite coefficient", c.Name)
			}
		}
	}
	return nil
}

// Violation returns the largest bound or constraint violation of x.
// Useful for checking a solver's answer.
func (m *Model) Violation(x []float64) float64 {
	worst := 0.0
	for i, v := range m.Vars {
		worst = math.Max(worst, v.Lower-x[i])
		worst = math.Max(worst, x[i]-v.Upper)
	}
	for _, c := range m.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		switch c.Op {
		case EQ:
			worst = math.Max(worst, math.Abs(lhs-c.RHS))
		case LE:
			worst = math.Max(worst, lhs-c.RHS)
		case GE:
			worst = math.Max(worst, c.RHS-lhs)
		}
	}
	return worst
}
