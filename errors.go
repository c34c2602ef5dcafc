// Package cutselect implements the constraint-programming core of a cut-selection
// engine for combinational logic synthesis: given a catalog of nodes and their
// candidate K-feasible cuts, it selects one cut per realized node so that the
// resulting cover is consistent (every selected cut's internal leaves are
// themselves realized, every declared output is realized) and optimal under a
// configurable objective (area, inversion count, depth, or a weighted mix).
//
// # Quick start
//
//	cat, err := cutselect.Load(ctx, "cuts.json")
//	if err != nil {
//		return err
//	}
//	res, err := cutselect.Solve(ctx, cat, cutselect.Objective{Mode: cutselect.ObjArea}, "chosen.json")
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Status, res.ObjectiveValue)
//
// Cut enumeration (producing the input catalog) and netlist rebuilding
// (consuming the chosen-cuts output) are external collaborators; this package
// treats both as opaque.
package cutselect

import (
	"errors"
	"fmt"
)

// ErrBadCatalog is returned (wrapped with details) when a catalog file is
// unreadable, structurally malformed, or contains a cut record with a
// non-integer cost field.
var ErrBadCatalog = errors.New("bad catalog")

// ErrBadObjective is returned (wrapped with the offending mode string) when
// an unknown objective mode is requested.
var ErrBadObjective = errors.New("bad objective")

// ErrModelError indicates an internal consistency failure rather than bad
// input: a depth-only objective requested against a model that was not
// built with depth variables, a fixed depth passed to [BuildModel] without a
// positive depth bound, or a [Cover] given to [WalkCover]/[LongestPath] that
// lacks a chosen cut for a node it reaches or contains a cycle. Correct
// orchestration (this package's own [Solve]) never triggers this; it guards
// direct [BuildModel] callers and hand-built covers.
var ErrModelError = errors.New("model error")

// ErrSolveFailure indicates the solver returned INFEASIBLE or UNKNOWN with
// no incumbent solution.
var ErrSolveFailure = errors.New("solve failure")

// ErrExternalToolFailure indicates the optional upstream cut-enumeration
// tool (invoked via [ResolveCatalogSource]) failed. This is distinct from
// [ErrBadCatalog]: the catalog JSON itself may be perfectly well-formed
// once produced — the failure is in producing it.
var ErrExternalToolFailure = errors.New("external tool failure")

func badCatalogf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadCatalog, fmt.Sprintf(format, args...))
}

func badObjectivef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadObjective, fmt.Sprintf(format, args...))
}

func modelErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrModelError, fmt.Sprintf(format, args...))
}

func externalToolFailuref(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExternalToolFailure, fmt.Sprintf(format, args...))
}
