package cutselect

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/cutselect/cutselect/internal/itertools"
	"golang.org/x/sync/errgroup"
)

// Cover is a read-only view of one solved selection: the {node name -> chosen cut index} mapping
// [Solve] produces, paired with the [Catalog] it was solved against. Downstream consumers (a
// netlist rebuilder, or this package's own test suite verifying P2/P5) use [WalkCover] and
// [LongestPath] instead of re-deriving cover traversal logic.
type Cover struct {
	Catalog *Catalog
	Chosen  map[string]int
}

func (c Cover) cutOf(name string) (Cut, bool) {
	idx, ok := c.Chosen[name]
	if !ok {
		return Cut{}, false
	}
	nd, ok := c.Catalog.Node(name)
	if !ok || idx < 0 || idx >= len(nd.Cuts) {
		return Cut{}, false
	}
	return nd.Cuts[idx], true
}

// internalLeaves returns name's chosen cut's leaves that refer to another catalog node, skipping
// any leaf that names name itself (BuildModel skips such leaves the same way) and
// collapsing a leaf repeated more than once in the same cut to a single visit.
func (c Cover) internalLeaves(name string) iter.Seq[string] {
	cut, ok := c.cutOf(name)
	if !ok {
		return func(func(string) bool) {}
	}
	internal := itertools.Filter(slices.Values(cut.Leaves), func(leaf string) bool {
		return leaf != name && c.Catalog.IsInternal(leaf)
	})
	return itertools.DistinctBy(internal, func(leaf string) string { return leaf })
}

// WalkCover walks the induced DAG of cover starting from the catalog's resolved roots, calling
// visit once per reachable used node. visit's descend return controls whether WalkCover recurses
// into that node's chosen cut's leaves, mirroring the teacher's generic graph walker's node-visit
// contract.
//
// A non-root node is visited only after some node whose chosen cut lists it, but the walk is not a
// strict topological order: a node with several parents in the cover can be visited before all of
// them are. visit may be called concurrently from several goroutines.
//
// Every node WalkCover reaches must have a chosen cut recorded in cover.Chosen; a gap there is an
// internal consistency failure (a malformed or hand-built Cover), reported as [ErrModelError]
// rather than [ErrBadCatalog], since the catalog itself is not at fault.
func WalkCover(ctx context.Context, cover Cover, visit func(name string, cut Cut) (descend bool, err error)) error {
	return walkCoverDAG(ctx, cover, cover.Catalog.ResolveRoots(), visit)
}

// walkCoverDAG is the parallel walker itself, adapted from the teacher's generic walkGraph: it
// fans out over a node's children concurrently and records every node it has dequeued, so a node
// reached along several edges (a diamond, or a node shared by several roots) is visited once. It
// does not wait for all edges into a node before visiting it.
func walkCoverDAG(ctx context.Context, cover Cover, starts []string,
	visit func(name string, cut Cut) (bool, error)) (retErr error) {

	slog.DebugContext(ctx, "walking cover", "starts", starts)
	var nVisited atomic.Int32
	defer func() {
		slog.DebugContext(ctx, "done walking cover", "starts", starts, "visited", nVisited.Load(), "err", retErr)
	}()
	if len(starts) == 0 {
		return nil
	}

	seen := map[string]<-chan struct{}{}
	q := make(chan string)
	var inflight atomic.Int32
	inflightDone := func() {
		if n := inflight.Add(-1); n == 0 {
			close(q)
		}
	}
	gr, ctx := errgroup.WithContext(ctx)
	enqueue := func(name string) {
		inflight.Add(1)
		gr.Go(func() error {
			select {
			case <-ctx.Done():
				inflightDone()
				return context.Cause(ctx)
			case q <- name:
				return nil
			}
		})
	}
	process := func(name string) error {
		defer inflightDone()
		if seen[name] != nil {
			return nil
		}
		ready := make(chan struct{})
		seen[name] = ready
		inflight.Add(1)
		gr.Go(func() error {
			defer inflightDone()
			defer close(ready)
			cut, ok := cover.cutOf(name)
			if !ok {
				return modelErrorf("cover has no chosen cut for node %q", name)
			}
			descend, err := visit(name, cut)
			if err != nil {
				return fmt.Errorf("visiting %q: %w", name, err)
			}
			nVisited.Add(1)
			if !descend {
				return nil
			}
			for leaf := range cover.internalLeaves(name) {
				enqueue(leaf)
			}
			return nil
		})
		return nil
	}
	for _, start := range starts {
		enqueue(start)
	}
	gr.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return context.Cause(ctx)
			case name, ok := <-q:
				if !ok {
					return nil
				}
				if err := process(name); err != nil {
					return err
				}
			}
		}
	})
	return gr.Wait()
}

// LongestPath sums depth_cost along cover's induced DAG from input leaves to each declared root
// and returns the maximum. This is the verification-side counterpart to the Depth Bounder's
// upper bound (depthbound.go): P5 asserts this value never exceeds phase A's reported D.
func LongestPath(cover Cover) (int, error) {
	memo := map[string]int{}
	var dfs func(name string, visiting map[string]bool) (int, error)
	dfs = func(name string, visiting map[string]bool) (int, error) {
		if d, ok := memo[name]; ok {
			return d, nil
		}
		if visiting[name] {
			return 0, modelErrorf("cycle detected in chosen cover at node %q", name)
		}
		cut, ok := cover.cutOf(name)
		if !ok {
			return 0, modelErrorf("cover has no chosen cut for node %q", name)
		}
		visiting[name] = true
		best := 0
		for leaf := range cover.internalLeaves(name) {
			d, err := dfs(leaf, visiting)
			if err != nil {
				return 0, err
			}
			if d > best {
				best = d
			}
		}
		delete(visiting, name)
		total := best + cut.DepthCost
		memo[name] = total
		return total, nil
	}
	best := 0
	for _, root := range cover.Catalog.ResolveRoots() {
		d, err := dfs(root, map[string]bool{})
		if err != nil {
			return 0, err
		}
		if d > best {
			best = d
		}
	}
	return best, nil
}
