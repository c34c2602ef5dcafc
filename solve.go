package cutselect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/crillab/gophersat/solver"

	"github.com/cutselect/cutselect/internal/logging"
)

// Status is the solver outcome vocabulary surfaced to callers (spec.md §6.4).
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusUnknown    Status = "UNKNOWN"
)

// Result is the outcome of a [Solve] call.
type Result struct {
	Status Status

	// ObjectiveValue is nil iff Status is neither OPTIMAL nor FEASIBLE.
	ObjectiveValue *int

	// PhaseADepth and PhaseBTiebreak are populated only for depth-aware objectives (depth,
	// overall): the depth found by phase A, and the tie-break objective value found by phase B.
	PhaseADepth    *int
	PhaseBTiebreak *int

	ChosenCuts map[string]int
}

type chosenCutsFile struct {
	ChosenCuts map[string]int `json:"chosen_cuts"`
}

// Solve runs the cut-selection pipeline against cat under objective obj, and — on a feasible or
// optimal outcome — writes the chosen-cuts JSON (spec.md §6.2) to outPath.
//
// Non-depth objectives (og, inv, area) build and solve a single model (§4.4.1). Depth-aware
// objectives (depth, overall) run the two-phase protocol (§4.4.2): phase A minimizes depth with
// early stop-after-first-solution, phase B fixes that depth and minimizes an area/inv tie-breaker,
// falling back to phase A's own chosen cuts if phase B turns out infeasible.
func Solve(ctx context.Context, cat *Catalog, obj Objective, outPath string) (Result, error) {
	switch obj.Mode {
	case ObjOriginal, ObjInv, ObjArea:
		return solveSingleModel(ctx, cat, obj.Mode, outPath)
	case ObjDepth, ObjOverall:
		return solveTwoPhase(ctx, cat, obj.Mode, outPath)
	default:
		return Result{}, badObjectivef("unknown objective mode %q", obj.Mode)
	}
}

func solveSingleModel(ctx context.Context, cat *Catalog, mode ObjectiveMode, outPath string) (Result, error) {
	m, err := BuildModel(ctx, cat, 0, nil)
	if err != nil {
		return Result{}, err
	}
	if err := m.applyObjective(mode); err != nil {
		return Result{}, err
	}
	rel := 0.05
	outcome := runPortfolio(ctx, m.problem, solveBudget{
		wallClock: 15 * time.Second,
		workers:   50,
		relGap:    &rel,
		seed:      0,
	})
	res := Result{Status: outcome.status}
	if outcome.status != StatusOptimal && outcome.status != StatusFeasible {
		slog.Log(ctx, logging.LevelNotice, "single-model solve did not reach a feasible solution",
			"mode", mode, "status", outcome.status)
		return res, nil
	}
	w := outcome.weight
	res.ObjectiveValue = &w
	res.ChosenCuts = m.ChosenCuts(outcome.bits)
	if err := writeChosenCuts(outPath, res.ChosenCuts); err != nil {
		return Result{}, err
	}
	return res, nil
}

func solveTwoPhase(ctx context.Context, cat *Catalog, mode ObjectiveMode, outPath string) (Result, error) {
	ub, err := DepthUpperBound(ctx, cat)
	if err != nil {
		return Result{}, err
	}

	mA, err := BuildModel(ctx, cat, ub, nil)
	if err != nil {
		return Result{}, err
	}
	if err := mA.applyObjective(ObjDepth); err != nil {
		return Result{}, err
	}
	absGap := 1
	outcomeA := runPortfolio(ctx, mA.problem, solveBudget{
		wallClock:      120 * time.Second,
		workers:        16,
		absGap:         &absGap,
		stopAfterFirst: true,
		seed:           1,
	})
	if outcomeA.status != StatusOptimal && outcomeA.status != StatusFeasible {
		slog.Log(ctx, logging.LevelNotice, "phase A (depth) found no feasible solution", "mode", mode)
		return Result{Status: outcomeA.status}, nil
	}
	bestDepth := mA.DValue(outcomeA.bits)
	phaseACuts := mA.ChosenCuts(outcomeA.bits)
	slog.Log(ctx, logging.LevelVerbose, "phase A complete", "depth", bestDepth, "status", outcomeA.status)

	tiebreakMode := objDepthTiebreakArea
	if mode == ObjOverall {
		tiebreakMode = objOverallTiebreak
	}
	mB, err := BuildModel(ctx, cat, ub, &bestDepth)
	if err != nil {
		return Result{}, err
	}
	if err := mB.applyObjective(tiebreakMode); err != nil {
		return Result{}, err
	}
	outcomeB := runPortfolio(ctx, mB.problem, solveBudget{
		wallClock: 60 * time.Second,
		workers:   16,
		seed:      1,
	})

	res := Result{Status: outcomeA.status}
	depth := bestDepth
	res.PhaseADepth = &depth
	var chosen map[string]int
	if outcomeB.status == StatusOptimal || outcomeB.status == StatusFeasible {
		res.Status = outcomeB.status
		tiebreak := outcomeB.weight
		res.PhaseBTiebreak = &tiebreak
		chosen = mB.ChosenCuts(outcomeB.bits)
	} else {
		slog.Log(ctx, logging.LevelNotice, "phase B infeasible; falling back to phase A's cover", "mode", mode)
		chosen = phaseACuts
	}
	objVal := depth
	if mode == ObjOverall {
		objVal = 100*depth + derefOr(res.PhaseBTiebreak, 0)
	}
	res.ObjectiveValue = &objVal
	res.ChosenCuts = chosen
	if err := writeChosenCuts(outPath, chosen); err != nil {
		return Result{}, err
	}
	return res, nil
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func writeChosenCuts(outPath string, chosen map[string]int) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("writing chosen cuts to %q: %w", outPath, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chosenCutsFile{ChosenCuts: chosen}); err != nil {
		return fmt.Errorf("encoding chosen cuts to %q: %w", outPath, err)
	}
	return nil
}

// solveBudget approximates one phase's CP-SAT search parameters (spec.md §4.4) on top of
// gophersat's simpler, sequential, deterministic search. See DESIGN.md's "CP-SAT knobs without a
// gophersat equivalent" entry for the rationale behind each approximation below.
type solveBudget struct {
	wallClock      time.Duration
	workers        int
	absGap         *int
	relGap         *float64
	stopAfterFirst bool

	// seed is accepted for interface fidelity with spec.md §4.4's random_seed parameter but is
	// otherwise inert: gophersat's branching order is VSIDS-driven with no seed hook, so every
	// portfolio member searches the same deterministic way regardless of this value.
	seed int64
}

type solveOutcome struct {
	status Status
	bits   []bool
	weight int
}

// runPortfolio runs a bounded portfolio of independent solver.New(prob) attempts concurrently
// (prob itself is read-only once constructed, so sharing it across attempts is safe) and returns
// the best incumbent seen across the whole portfolio by the time budget.wallClock elapses. With
// budget.stopAfterFirst set, each attempt stops at its own first incumbent and the lowest-weight
// one among them is returned.
//
// Known limitation: gophersat's (*solver.Solver).Optimal accepts a stop channel but the installed
// version never reads from it, so there is no way to actually interrupt a Solver mid-search; this
// function can only stop *listening* to an overrunning attempt once its budget is spent, not
// reclaim the goroutine driving it. That goroutine is abandoned (it will eventually finish and
// then block forever trying to send on an unread channel). This is a deliberate, documented
// simplification — not a resource leak this module can close without a gophersat API change.
func runPortfolio(ctx context.Context, prob *solver.Problem, budget solveBudget) solveOutcome {
	dctx, cancel := context.WithTimeout(ctx, budget.wallClock)
	defer cancel()

	workers := budget.workers
	if gm := runtime.GOMAXPROCS(0); workers > gm {
		workers = gm
	}
	if workers < 1 {
		workers = 1
	}

	type attempt struct {
		bits      []bool
		weight    int
		ok        bool
		concluded bool // true if the attempt's incumbent stream ran to natural completion (proven optimal).
	}
	results := make(chan attempt, workers)
	for i := 0; i < workers; i++ {
		go func() {
			s := solver.New(prob)
			models := make(chan solver.Result)
			stop := make(chan struct{})
			go func() { s.Optimal(models, stop) }()

			var best solver.Result
			haveBest := false
			lastWeight := -1
			for {
				select {
				case m, ok := <-models:
					if !ok {
						results <- attempt{bits: bitsOf(best, prob.NbVars), weight: best.Weight, ok: haveBest, concluded: true}
						return
					}
					best = m
					haveBest = true
					if gapSatisfied(budget, lastWeight, m.Weight) {
						results <- attempt{bits: bitsOf(best, prob.NbVars), weight: best.Weight, ok: true}
						return
					}
					lastWeight = m.Weight
				case <-dctx.Done():
					results <- attempt{bits: bitsOf(best, prob.NbVars), weight: best.Weight, ok: haveBest}
					return
				}
			}
		}()
	}

	out := solveOutcome{status: StatusInfeasible}
	haveAny := false
	for i := 0; i < workers; i++ {
		a := <-results
		if !a.ok {
			continue
		}
		if !haveAny || a.weight < out.weight {
			haveAny = true
			out.bits = a.bits
			out.weight = a.weight
			out.status = StatusFeasible
			if a.concluded {
				out.status = StatusOptimal
			}
		}
	}
	return out
}

func gapSatisfied(b solveBudget, prevWeight, curWeight int) bool {
	if b.stopAfterFirst {
		return true
	}
	if prevWeight < 0 {
		return false
	}
	improvement := prevWeight - curWeight
	if b.absGap != nil && improvement <= *b.absGap {
		return true
	}
	if b.relGap != nil {
		denom := prevWeight
		if denom == 0 {
			denom = 1
		}
		if float64(improvement)/float64(denom) < *b.relGap {
			return true
		}
	}
	return false
}

func bitsOf(res solver.Result, nbVars int) []bool {
	bits := make([]bool, nbVars)
	for i := 0; i < nbVars; i++ {
		bits[i] = res.Model[i+1]
	}
	return bits
}
