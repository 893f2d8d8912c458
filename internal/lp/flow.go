package lp

import (
	"context"
	"math"
)

// Arc states of the network simplex. Non-tree arcs sit at a bound.
const (
	stateUpper int8 = -1
	stateTree  int8 = 0
	stateLower int8 = 1
)

// Direction of a node's tree arc relative to its parent.
const (
	dirUp   int8 = 1 // arc runs from the node to its parent
	dirDown int8 = -1
)

// solve finds a minimum-cost flow meeting g.supply with a primal network
// simplex on a strongly feasible spanning tree. The starting tree joins
// every node to an artificial root through an arc priced above any path in
// the graph, so flow left on those arcs at the optimum means the supplies
// cannot be met.
func (g *flowGraph) solve(ctx context.Context) error {
	ns := newNetSimplex(g)
	for it := 0; ; it++ {
		if it&1023 == 0 && ctx.Err() != nil {
			return contextError(ctx)
		}
		in := ns.entering()
		if in < 0 {
			break
		}
		if err := ns.pivot(in); err != nil {
			return err
		}
	}

	worst := 0.0
	for _, s := range g.supply {
		worst = math.Max(worst, math.Abs(s))
	}
	tol := defaultFeasibilityTol * (1 + worst)
	for e := ns.real; e < len(ns.src); e++ {
		if ns.flow[e] > tol {
			return ErrInfeasible
		}
	}
	copy(g.flow, ns.flow[:ns.real])
	return nil
}

type netSimplex struct {
	real int // arcs below real come from the graph, the rest are artificial
	root int

	src, dst []int
	cap      []float64
	cost     []float64
	flow     []float64
	state    []int8

	// Spanning tree. Children of a node form a doubly linked list.
	parent, pred, depth []int
	dir                 []int8
	child, next, prev   []int
	pi                  []float64

	eps     float64
	block   int
	nextArc int
	stack   []int
	stem    []int
}

func newNetSimplex(g *flowGraph) *netSimplex {
	n, m := g.nodes, len(g.src)
	all := m + n
	ns := &netSimplex{
		real:   m,
		root:   n,
		src:    make([]int, all),
		dst:    make([]int, all),
		cap:    make([]float64, all),
		cost:   make([]float64, all),
		flow:   make([]float64, all),
		state:  make([]int8, all),
		parent: make([]int, n+1),
		pred:   make([]int, n+1),
		depth:  make([]int, n+1),
		dir:    make([]int8, n+1),
		child:  make([]int, n+1),
		next:   make([]int, n+1),
		prev:   make([]int, n+1),
		pi:     make([]float64, n+1),
		block:  int(math.Max(10, math.Sqrt(float64(m)))),
	}
	copy(ns.src, g.src)
	copy(ns.dst, g.dst)
	copy(ns.cap, g.cap)
	copy(ns.cost, g.cost)

	maxCost := 0.0
	for e := 0; e < m; e++ {
		ns.state[e] = stateLower
		maxCost = math.Max(maxCost, math.Abs(g.cost[e]))
	}
	art := (maxCost + 1) * float64(n+1)
	ns.eps = math.Max(1e-9, 1e-12*art)

	for u := range ns.child {
		ns.child[u], ns.next[u], ns.prev[u] = -1, -1, -1
	}
	ns.parent[ns.root], ns.pred[ns.root] = -1, -1

	for u := 0; u < n; u++ {
		e := m + u
		ns.cap[e] = math.Inf(1)
		ns.state[e] = stateTree
		ns.pred[u] = e
		ns.depth[u] = 1
		ns.attach(u, ns.root)
		if s := g.supply[u]; s >= 0 {
			ns.src[e], ns.dst[e] = u, ns.root
			ns.flow[e] = s
			ns.dir[u] = dirUp
		} else {
			ns.src[e], ns.dst[e] = ns.root, u
			ns.flow[e] = -s
			ns.cost[e] = art
			ns.dir[u] = dirDown
			ns.pi[u] = art
		}
	}
	return ns
}

// entering returns a non-tree arc whose reduced cost improves the objective,
// or -1 at optimality. Arcs are scanned in blocks and the best candidate of
// the first block holding one wins.
func (ns *netSimplex) entering() int {
	best, in := -ns.eps, -1
	cnt := ns.block
	e := ns.nextArc
	for k := 0; k < ns.real; k++ {
		c := float64(ns.state[e]) * (ns.cost[e] + ns.pi[ns.src[e]] - ns.pi[ns.dst[e]])
		if c < best {
			best, in = c, e
		}
		if e++; e == ns.real {
			e = 0
		}
		if cnt--; cnt == 0 {
			if in >= 0 {
				break
			}
			cnt = ns.block
		}
	}
	ns.nextArc = e
	return in
}

func (ns *netSimplex) join(u, v int) int {
	for u != v {
		switch {
		case ns.depth[u] > ns.depth[v]:
			u = ns.parent[u]
		case ns.depth[v] > ns.depth[u]:
			v = ns.parent[v]
		default:
			u, v = ns.parent[u], ns.parent[v]
		}
	}
	return u
}

// pivot sends flow around the cycle that in closes with the tree. Ties for
// the leaving arc go to the last blocking arc met when walking the cycle
// from its apex, which keeps the tree strongly feasible.
func (ns *netSimplex) pivot(in int) error {
	first, second := ns.src[in], ns.dst[in]
	if ns.state[in] == stateUpper {
		first, second = second, first
	}
	apex := ns.join(first, second)

	delta := ns.cap[in]
	side, uOut, outUpper := 0, -1, false
	for u := first; u != apex; u = ns.parent[u] {
		e := ns.pred[u]
		d, upper := ns.flow[e], false
		if ns.dir[u] == dirDown {
			d, upper = ns.cap[e]-ns.flow[e], true
		}
		if d < delta {
			delta, side, uOut, outUpper = math.Max(d, 0), 1, u, upper
		}
	}
	for u := second; u != apex; u = ns.parent[u] {
		e := ns.pred[u]
		d, upper := ns.flow[e], false
		if ns.dir[u] == dirUp {
			d, upper = ns.cap[e]-ns.flow[e], true
		}
		if d <= delta {
			delta, side, uOut, outUpper = math.Max(d, 0), 2, u, upper
		}
	}
	if math.IsInf(delta, 1) {
		return ErrUnbounded
	}

	if delta > 0 {
		val := float64(ns.state[in]) * delta
		ns.flow[in] += val
		for u := ns.src[in]; u != apex; u = ns.parent[u] {
			ns.flow[ns.pred[u]] -= float64(ns.dir[u]) * val
		}
		for u := ns.dst[in]; u != apex; u = ns.parent[u] {
			ns.flow[ns.pred[u]] += float64(ns.dir[u]) * val
		}
	}

	if side == 0 {
		// The entering arc blocks first: it moves to its other bound.
		if ns.state[in] == stateLower {
			ns.flow[in], ns.state[in] = ns.cap[in], stateUpper
		} else {
			ns.flow[in], ns.state[in] = 0, stateLower
		}
		return nil
	}

	out := ns.pred[uOut]
	if outUpper {
		ns.flow[out], ns.state[out] = ns.cap[out], stateUpper
	} else {
		ns.flow[out], ns.state[out] = 0, stateLower
	}
	ns.state[in] = stateTree

	uIn, vIn := first, second
	if side == 2 {
		uIn, vIn = second, first
	}
	ns.retree(in, uIn, vIn, uOut)
	return nil
}

// retree cuts the subtree below uOut, re-roots it at uIn by reversing the
// path between them and hangs it from vIn through the entering arc.
func (ns *netSimplex) retree(in, uIn, vIn, uOut int) {
	stem := ns.stem[:0]
	for u := uIn; ; u = ns.parent[u] {
		stem = append(stem, u)
		if u == uOut {
			break
		}
	}
	for _, u := range stem {
		ns.detach(u)
	}
	for i := len(stem) - 1; i > 0; i-- {
		c, p := stem[i], stem[i-1]
		ns.pred[c] = ns.pred[p]
		ns.dir[c] = -ns.dir[p]
		ns.attach(c, p)
	}
	ns.pred[uIn] = in
	if ns.src[in] == uIn {
		ns.dir[uIn] = dirUp
	} else {
		ns.dir[uIn] = dirDown
	}
	ns.attach(uIn, vIn)
	ns.stem = stem

	ns.refresh(uIn)
}

// refresh recomputes depth and potential below and including r so that
// every tree arc has zero reduced cost.
func (ns *netSimplex) refresh(r int) {
	stack := append(ns.stack[:0], r)
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p, e := ns.parent[u], ns.pred[u]
		ns.depth[u] = ns.depth[p] + 1
		if ns.dir[u] == dirUp {
			ns.pi[u] = ns.pi[p] - ns.cost[e]
		} else {
			ns.pi[u] = ns.pi[p] + ns.cost[e]
		}
		for c := ns.child[u]; c >= 0; c = ns.next[c] {
			stack = append(stack, c)
		}
	}
	ns.stack = stack
}

func (ns *netSimplex) attach(u, p int) {
	ns.parent[u] = p
	ns.prev[u] = -1
	ns.next[u] = ns.child[p]
	if ns.child[p] >= 0 {
		ns.prev[ns.child[p]] = u
	}
	ns.child[p] = u
}

func (ns *netSimplex) detach(u int) {
	if ns.prev[u] >= 0 {
		ns.next[ns.prev[u]] = ns.next[u]
	} else {
		ns.child[ns.parent[u]] = ns.next[u]
	}
	if ns.next[u] >= 0 {
		ns.prev[ns.next[u]] = ns.prev[u]
	}
	ns.next[u], ns.prev[u] = -1, -1
}
