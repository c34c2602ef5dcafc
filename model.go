package cutselect

import (
	"context"
	"log/slog"

	"github.com/crillab/gophersat/solver"
	mapset "github.com/deckarep/golang-set/v2"
)

// ObjectiveMode selects which cost function the Model Builder and Solver Driver optimize for.
// See spec.md §4.3's objective table.
type ObjectiveMode string

const (
	ObjOriginal ObjectiveMode = "og"
	ObjInv      ObjectiveMode = "inv"
	ObjArea     ObjectiveMode = "area"
	ObjDepth    ObjectiveMode = "depth"
	ObjOverall  ObjectiveMode = "overall"

	// objDepthTiebreakArea and objOverallTiebreak are phase-B-only objectives; callers never
	// request them directly (see [Solve]), so they are not exported.
	objDepthTiebreakArea ObjectiveMode = "depth_tiebreak_area"
	objOverallTiebreak   ObjectiveMode = "overall_tiebreak"
)

// Objective configures a solve request.
type Objective struct {
	Mode ObjectiveMode
}

// ParseObjectiveMode parses the CLI/config spelling of an objective mode. "original" is accepted
// as a synonym for "og".
func ParseObjectiveMode(s string) (ObjectiveMode, error) {
	switch ObjectiveMode(s) {
	case ObjOriginal, "original":
		return ObjOriginal, nil
	case ObjInv, ObjArea, ObjDepth, ObjOverall:
		return ObjectiveMode(s), nil
	default:
		return "", badObjectivef("unknown objective mode %q", s)
	}
}

func (m ObjectiveMode) needsDepth() bool {
	return m == ObjDepth || m == ObjOverall || m == objDepthTiebreakArea || m == objOverallTiebreak
}

// nodeCut identifies a (node, original cut index) pair. The index is always the position in the
// node's original Cuts slice, never the position among the filtered non-self-cuts — preserving
// that distinction is what makes chosen-cut extraction stable (spec.md §9).
type nodeCut struct {
	node string
	idx  int
}

// varAlloc hands out sequential gophersat variables. gophersat numbers variables densely from 0,
// so allocation order here fixes the numbering the solver sees; this module always allocates (and
// later emits constraints over) variables in catalog order, per spec.md §5's determinism
// requirement.
type varAlloc struct{ next int }

func (a *varAlloc) new() solver.Var {
	v := solver.Var(a.next)
	a.next++
	return v
}

// Model is the compiled SAT/pseudo-boolean form of a [Catalog] under one configuration (depth
// variables on or off, and — for phase B — a fixed depth). It is built once and solved once; a
// fresh Model is constructed for each phase of a two-phase solve (spec.md §5: "each phase
// constructs an independent, disjoint model instance").
type Model struct {
	cat        *Catalog
	depthBound int // 0 disables depth (level/D) variables entirely.

	usedVar   map[string]solver.Var
	chosenVar map[nodeCut]solver.Var
	nodeCuts  map[string][]int // node -> original cut indices with an allocated chosen var, in order.
	levelVar  map[string][]solver.Var // node -> atLeast[level(node), k] for k=1..depthBound, at index k-1.
	dVar      []solver.Var            // atLeast[D, k] for k=1..depthBound, at index k-1.

	problem *solver.Problem
}

// BuildModel compiles cat into a fresh [Model]. depthBound <= 0 builds a depth-free model (used
// for the og/inv/area objectives); depthBound > 0 adds level/D order-encoding variables (spec.md
// §4.3). fixDepth, if non-nil, pins the global D variable to that exact value — used for phase B
// of a depth-aware solve (spec.md §4.4.2) — and requires depthBound > 0.
func BuildModel(ctx context.Context, cat *Catalog, depthBound int, fixDepth *int) (*Model, error) {
	if fixDepth != nil && depthBound <= 0 {
		return nil, modelErrorf("fixDepth given but depthBound is not positive")
	}
	m := &Model{
		cat:        cat,
		depthBound: depthBound,
		usedVar:    make(map[string]solver.Var, len(cat.Nodes)),
		chosenVar:  map[nodeCut]solver.Var{},
		nodeCuts:   make(map[string][]int, len(cat.Nodes)),
	}
	var alloc varAlloc
	var constrs []solver.PBConstr

	inputSet := mapset.NewThreadUnsafeSet(cat.Inputs...)

	if depthBound > 0 {
		m.levelVar = make(map[string][]solver.Var, len(cat.Nodes))
		m.dVar = make([]solver.Var, depthBound)
		for k := range m.dVar {
			m.dVar[k] = alloc.new()
		}
		for k := 1; k < depthBound; k++ {
			constrs = append(constrs, solver.PropClause(-int(m.dVar[k].Int()), int(m.dVar[k-1].Int())))
		}
	}

	// Pass 1: allocate used[n] and level[n] (if depth mode) for every node, in catalog order, and
	// emit the constraints that only need those two kinds of variables.
	for _, nd := range cat.Nodes {
		uv := alloc.new()
		m.usedVar[nd.Name] = uv
		if depthBound <= 0 {
			continue
		}
		lv := make([]solver.Var, depthBound)
		for k := range lv {
			lv[k] = alloc.new()
		}
		m.levelVar[nd.Name] = lv
		for k := 1; k < depthBound; k++ {
			constrs = append(constrs, solver.PropClause(-int(lv[k].Int()), int(lv[k-1].Int())))
		}
		if inputSet.Contains(nd.Name) {
			// A catalog node that is also a declared primary input is pinned to level=0,
			// overriding the used-based floor/ceiling below (spec.md §9 open question).
			constrs = append(constrs, solver.PropClause(-int(lv[0].Int())))
			continue
		}
		usedLit := int(uv.Int())
		// level[n] >= used[n]: used => atLeast[n][1].
		constrs = append(constrs, solver.PropClause(-usedLit, int(lv[0].Int())))
		// level[n] <= depthBound*used[n]: !used => !atLeast[n][1] (monotonicity propagates the
		// rest of the chain to false).
		constrs = append(constrs, solver.PropClause(usedLit, -int(lv[0].Int())))
	}

	// Pass 2: allocate chosen[n,i] (skipping self-cuts) and emit constraints (A), (B), and the
	// chosen-dependent half of (C), all in catalog node-then-cut order.
	for _, nd := range cat.Nodes {
		usedLit := int(m.usedVar[nd.Name].Int())
		var chosenLits []int
		var idxs []int
		for i, cut := range nd.Cuts {
			if cut.IsSelfCut(nd.Name) {
				continue
			}
			cv := alloc.new()
			m.chosenVar[nodeCut{nd.Name, i}] = cv
			chosenLits = append(chosenLits, int(cv.Int()))
			idxs = append(idxs, i)
		}
		m.nodeCuts[nd.Name] = idxs

		if len(chosenLits) == 0 {
			// No selectable cut: this node can never be used (spec.md §4.3(A)).
			constrs = append(constrs, solver.PropClause(-usedLit))
			continue
		}
		constrs = append(constrs, solver.PropClause(append([]int{-usedLit}, chosenLits...)...))
		for _, cl := range chosenLits {
			constrs = append(constrs, solver.PropClause(-cl, usedLit))
		}
		constrs = append(constrs, solver.AtMost(chosenLits, 1))

		for _, i := range idxs {
			cut := nd.Cuts[i]
			cv := m.chosenVar[nodeCut{nd.Name, i}]
			cvLit := int(cv.Int())
			for _, leaf := range cut.Leaves {
				if leaf == nd.Name || !cat.IsInternal(leaf) {
					continue
				}
				constrs = append(constrs, solver.PropClause(-cvLit, int(m.usedVar[leaf].Int())))
			}
			if depthBound <= 0 {
				continue
			}
			nLevel := m.levelVar[nd.Name]
			for _, leaf := range cut.Leaves {
				if leaf == nd.Name {
					continue
				}
				if !cat.IsInternal(leaf) {
					// Primary input / constant leaf: level is implicitly 0, so the big-M
					// implication collapses to chosen => atLeast[n][depth_cost].
					if cut.DepthCost <= depthBound {
						constrs = append(constrs, solver.PropClause(-cvLit, int(nLevel[cut.DepthCost-1].Int())))
					}
					continue
				}
				leafLevel := m.levelVar[leaf]
				for k := 1; k <= depthBound; k++ {
					target := k + cut.DepthCost
					if target > depthBound {
						// level[n] would have to exceed the domain bound; the only way this
						// clause is satisfiable is if this cut isn't chosen or the leaf's level
						// doesn't reach k.
						constrs = append(constrs, solver.PropClause(-cvLit, -int(leafLevel[k-1].Int())))
						continue
					}
					constrs = append(constrs,
						solver.PropClause(-cvLit, -int(leafLevel[k-1].Int()), int(nLevel[target-1].Int())))
				}
			}
		}
	}

	// Pass 3: D >= level[n] for every node, and fix D if requested.
	if depthBound > 0 {
		for _, nd := range cat.Nodes {
			lv := m.levelVar[nd.Name]
			for k := 1; k <= depthBound; k++ {
				constrs = append(constrs, solver.PropClause(-int(lv[k-1].Int()), int(m.dVar[k-1].Int())))
			}
		}
		if fixDepth != nil {
			fd := *fixDepth
			if fd >= 1 && fd <= depthBound {
				constrs = append(constrs, solver.PropClause(int(m.dVar[fd-1].Int())))
			}
			if fd+1 <= depthBound {
				constrs = append(constrs, solver.PropClause(-int(m.dVar[fd].Int())))
			}
		}
	}

	// (D) Root enforcement.
	for _, root := range cat.ResolveRoots() {
		if uv, ok := m.usedVar[root]; ok {
			constrs = append(constrs, solver.PropClause(int(uv.Int())))
		}
	}

	m.problem = solver.ParsePBConstrs(constrs)
	slog.DebugContext(ctx, "built cut-selection model",
		"nodes", len(cat.Nodes), "depthBound", depthBound, "fixDepth", fixDepth, "constraints", len(constrs))
	return m, nil
}

// applyObjective attaches mode's cost function to m's underlying problem. It must be called
// exactly once per Model before solving.
func (m *Model) applyObjective(mode ObjectiveMode) error {
	if mode.needsDepth() && m.depthBound <= 0 {
		return modelErrorf("objective %q requires a depth-enabled model", mode)
	}
	var lits []solver.Lit
	var weights []int
	addChosen := func(invWeight, areaWeight int) {
		for _, nd := range m.cat.Nodes {
			for _, i := range m.nodeCuts[nd.Name] {
				cut := nd.Cuts[i]
				w := invWeight*cut.InvCost + areaWeight*cut.AreaCost
				if w == 0 {
					continue
				}
				cv := m.chosenVar[nodeCut{nd.Name, i}]
				lits = append(lits, cv.Lit())
				weights = append(weights, w)
			}
		}
	}
	addDepth := func(w int) {
		for _, dv := range m.dVar {
			lits = append(lits, dv.Lit())
			weights = append(weights, w)
		}
	}
	switch mode {
	case ObjOriginal:
		addChosen(10, 1)
	case ObjInv:
		addChosen(1, 0)
	case ObjArea:
		addChosen(0, 1)
	case ObjDepth:
		addDepth(1)
	case ObjOverall:
		addDepth(100)
		addChosen(1, 10)
	case objDepthTiebreakArea:
		addChosen(0, 1)
	case objOverallTiebreak:
		addChosen(1, 10)
	default:
		return badObjectivef("unknown objective mode %q", mode)
	}
	m.problem.SetCostFunc(lits, weights)
	return nil
}

// ChosenCuts reads bits — a full variable assignment shaped like [solver.Solver.Model]'s return —
// and returns the chosen cut index for every used node, keyed by node name and valued by the
// cut's original (pre-self-cut-filtering) position in its node's Cuts slice.
func (m *Model) ChosenCuts(bits []bool) map[string]int {
	out := make(map[string]int, len(m.cat.Nodes))
	for _, nd := range m.cat.Nodes {
		if !bits[int(m.usedVar[nd.Name])] {
			continue
		}
		for _, i := range m.nodeCuts[nd.Name] {
			if bits[int(m.chosenVar[nodeCut{nd.Name, i}])] {
				out[nd.Name] = i
				break
			}
		}
	}
	return out
}

// DValue reads the global depth variable's integer value out of bits, or returns 0 if m was built
// without depth variables. The order encoding's monotonic chain guarantees the count of true
// atLeast[D,k] bits equals D's value exactly.
func (m *Model) DValue(bits []bool) int {
	d := 0
	for _, dv := range m.dVar {
		if bits[int(dv)] {
			d++
		}
	}
	return d
}
