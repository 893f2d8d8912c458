package lp

import (
	"context"
	"errors"
)

// Auto sends each model to Network and falls back to Dense when the model
// has no network structure.
type Auto struct {
	Network *Network
	Dense   *Simplex
}

func NewAuto() *Auto {
	return &Auto{Network: NewNetwork(), Dense: NewSimplex()}
}

func (a *Auto) Name() string { return "auto" }

func (a *Auto) Solve(ctx context.Context, m *Model) (*Solution, error) {
	network := a.Network
	if network == nil {
		network = NewNetwork()
	}
	sol, err := network.Solve(ctx, m)
	if !errors.Is(err, ErrNotNetwork) {
		return sol, err
	}
	if a.Dense == nil {
		return nil, err
	}
	return a.Dense.Solve(ctx, m)
}
