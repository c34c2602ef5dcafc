package cutselect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cutselect/cutselect/internal/logging"
)

// A Cut is one candidate implementation of a [Node]: an ordered sequence of
// leaf names that feed it, plus the costs it contributes if selected.
//
// A cut whose sole leaf is the owning node's own name is a self-cut: it is
// structurally degenerate (the node would feed itself) and is always
// excluded at model-construction time, never at load time, so that
// [Cut]'s position in [Node.Cuts] — the cut_index handed back to callers —
// stays stable regardless of which cuts end up selectable.
type Cut struct {
	Leaves    []string `json:"leaves"`
	InvCost   int      `json:"inv_cost"`
	AreaCost  int      `json:"area_cost"`
	DepthCost int      `json:"depth_cost"`
}

// IsSelfCut reports whether c is a self-cut of the node named name: a cut
// whose only leaf is the node itself.
func (c Cut) IsSelfCut(name string) bool {
	return len(c.Leaves) == 1 && c.Leaves[0] == name
}

// rawCut mirrors the two accepted JSON shapes for a cut: a bare array of
// leaf names, or an object with explicit (optionally partial) cost fields.
type rawCut struct {
	Leaves    []string `json:"leaves"`
	InvCost   *int     `json:"inv_cost"`
	AreaCost  *int     `json:"area_cost"`
	DepthCost *int     `json:"depth_cost"`
}

// UnmarshalJSON lifts a bare leaf-name array to a canonical [Cut] record
// (inv_cost=0, area_cost=len(leaves), depth_cost=1) and fills in missing
// cost fields on an already-object-shaped cut with the same defaults. This
// is normalization rule 1 and 2 of the catalog loader.
func (c *Cut) UnmarshalJSON(data []byte) error {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		c.Leaves = bare
		c.InvCost = 0
		c.AreaCost = len(bare)
		c.DepthCost = 1
		return nil
	}
	var raw rawCut
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Leaves = raw.Leaves
	c.InvCost = 0
	if raw.InvCost != nil {
		c.InvCost = *raw.InvCost
	}
	c.AreaCost = len(raw.Leaves)
	if raw.AreaCost != nil {
		c.AreaCost = *raw.AreaCost
	}
	c.DepthCost = 1
	if raw.DepthCost != nil {
		c.DepthCost = *raw.DepthCost
	}
	return nil
}

// A Node is a named entity in a [Catalog] with a non-empty ordered sequence
// of candidate [Cut] implementations. The positional index of a cut within
// Cuts is the cut_index returned to downstream tooling.
type Node struct {
	Name string `json:"name"`
	Cuts []Cut  `json:"cuts"`
}

// A Catalog is an ordered sequence of [Node] records, plus the resolved
// (possibly empty) sets of declared primary inputs and outputs. A Catalog
// is read-only once loaded; nothing in this package mutates one after
// [Load] or [LoadReader] returns it.
type Catalog struct {
	Nodes   []Node
	Inputs  []string
	Outputs []string

	index map[string]int
}

// rawCatalog is the top-level JSON shape accepted by the loader (spec.md §6.1).
type rawCatalog struct {
	Nodes   []Node   `json:"nodes"`
	Outputs []string `json:"outputs"`
	Inputs  []string `json:"inputs"`
}

// Load reads and normalizes the cuts catalog at path. See [LoadReader] for
// the normalization rules.
func Load(ctx context.Context, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, badCatalogf("opening %q: %v", path, err)
	}
	defer f.Close()
	cat, err := LoadReader(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return cat, nil
}

// LoadReader reads and normalizes a cuts catalog from r. Every [Cut] is
// returned in canonical record form (see [Cut.UnmarshalJSON]); the
// returned [Catalog]'s Inputs and Outputs fields are always non-nil,
// defaulting to empty when absent from the JSON. Root resolution (which
// node(s) must be used when Outputs is empty) is deferred to
// [BuildModel]/[Solve], per spec.md §4.1 rule 4. A declared output that
// does not name a catalog node is rejected with [ErrBadCatalog].
func LoadReader(ctx context.Context, r io.Reader) (*Catalog, error) {
	slog.DebugContext(ctx, "loading cuts catalog")
	var raw rawCatalog
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, badCatalogf("decoding catalog JSON: %v", err)
	}
	if raw.Inputs == nil {
		raw.Inputs = []string{}
	}
	if raw.Outputs == nil {
		raw.Outputs = []string{}
	}
	index := make(map[string]int, len(raw.Nodes))
	for i, nd := range raw.Nodes {
		if nd.Name == "" {
			return nil, badCatalogf("node %d has an empty name", i)
		}
		if _, dup := index[nd.Name]; dup {
			return nil, badCatalogf("duplicate node name %q", nd.Name)
		}
		index[nd.Name] = i
	}
	for _, out := range raw.Outputs {
		if _, ok := index[out]; !ok {
			return nil, badCatalogf("declared output %q does not name a catalog node", out)
		}
	}
	cat := &Catalog{
		Nodes:   raw.Nodes,
		Inputs:  raw.Inputs,
		Outputs: raw.Outputs,
		index:   index,
	}
	slog.Log(ctx, logging.LevelVerbose, "loaded cuts catalog",
		"nodes", len(cat.Nodes), "inputs", len(cat.Inputs), "outputs", len(cat.Outputs))
	return cat, nil
}

// NodeIndex returns the position of the node named name in Nodes, and
// whether it exists.
func (c *Catalog) NodeIndex(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Node returns the node named name, and whether it exists.
func (c *Catalog) Node(name string) (Node, bool) {
	i, ok := c.index[name]
	if !ok {
		return Node{}, false
	}
	return c.Nodes[i], true
}

// IsInternal reports whether name refers to a node in the catalog (as
// opposed to a primary input or constant leaf not defined by any node).
func (c *Catalog) IsInternal(name string) bool {
	_, ok := c.index[name]
	return ok
}

// ResolveRoots returns the set of node names that must be used, per
// spec.md §3/§4.3(D). [Load]/[LoadReader] already reject any declared
// output that does not name a catalog node (see [LoadReader] on that
// policy choice), so when Outputs is non-empty it is returned as-is.
// Otherwise the fallback is ["Nout"] if a node named "Nout" exists, else
// the last node in the catalog. Returns nil if the catalog has no nodes
// and no declared outputs.
func (c *Catalog) ResolveRoots() []string {
	if len(c.Outputs) > 0 {
		return c.Outputs
	}
	if c.IsInternal("Nout") {
		return []string{"Nout"}
	}
	if len(c.Nodes) > 0 {
		return []string{c.Nodes[len(c.Nodes)-1].Name}
	}
	return nil
}
