package cutselect

import (
	"context"
	"log/slog"

	"github.com/cutselect/cutselect/internal/syncmap"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
)

// DepthUpperBound computes a conservative upper bound on the logic depth of
// cat, for use as the integer domain bound of the depth-aware model's level
// variables (spec.md §4.2). The bound is deliberately loose — see the
// slack added at the end of this function — so that an under-estimate
// never causes spurious model infeasibility.
//
// The per-node depth computation is a memoized DFS; a node's own depth
// does not depend on which root asked for it, so the memo table
// ([internal/syncmap.Map]) is shared across the (possibly several,
// possibly concurrently resolved) declared roots, while each root's own
// DFS keeps an independent on-stack set so that cycle detection never
// confuses one root's traversal with another's.
func DepthUpperBound(ctx context.Context, cat *Catalog) (int, error) {
	roots := cat.ResolveRoots()
	nNodes := len(cat.Nodes)
	sentinel := max(nNodes, 1)

	memo := &syncmap.Map[string, int]{}
	dc := &depthDFS{cat: cat, memo: memo, sentinel: sentinel}

	base := sentinel
	if len(roots) > 0 {
		depths := make([]int, len(roots))
		gr, _ := errgroup.WithContext(ctx)
		for i, root := range roots {
			gr.Go(func() error {
				depths[i] = dc.depth(root, mapset.NewThreadUnsafeSet[string]())
				return nil
			})
		}
		_ = gr.Wait() // depthDFS.depth never errors; ctx cancellation is advisory only here.
		base = 0
		for _, d := range depths {
			if d > base {
				base = d
			}
		}
	}

	withSlack := max(base+10, ceilDiv(3*base, 2))
	ub := max(withSlack, sentinel)
	ub = max(ub, 1)
	slog.DebugContext(ctx, "computed depth upper bound", "base", base, "ub", ub, "roots", roots)
	return ub, nil
}

type depthDFS struct {
	cat      *Catalog
	memo     *syncmap.Map[string, int]
	sentinel int
}

// depth returns the conservative minimum-depth-cost of name, per spec.md
// §4.2. visiting is the set of node names currently on this call's DFS
// stack; a back-edge into it yields the cycle sentinel without recursing
// further and without polluting the shared memo (the true depth is still
// being computed further up the stack).
func (dc *depthDFS) depth(name string, visiting mapset.Set[string]) int {
	if d, ok := dc.memo.Load(name); ok {
		return d
	}
	if visiting.Contains(name) {
		return dc.sentinel
	}
	nd, ok := dc.cat.Node(name)
	if !ok {
		dc.memo.Store(name, 0)
		return 0
	}
	visiting.Add(name)
	best := -1
	for _, cut := range nd.Cuts {
		if cut.IsSelfCut(name) {
			continue
		}
		leafDepth := 0
		for _, leaf := range cut.Leaves {
			if leaf == name {
				continue
			}
			if d := dc.depth(leaf, visiting); d > leafDepth {
				leafDepth = d
			}
		}
		cutDepth := leafDepth + cut.DepthCost
		if best == -1 || cutDepth < best {
			best = cutDepth
		}
	}
	visiting.Remove(name)
	if best == -1 {
		best = 0
	}
	dc.memo.Store(name, best)
	return best
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
