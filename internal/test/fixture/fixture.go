// Package fixture assembles cuts catalogs in-memory for tests, the way
// internal/test/fakemodule assembled fake module-proxy responses for the teacher's test suite:
// a small builder that hands its result to the real loader, so tests exercise the production
// normalization path (bare-list lifting, cost defaulting) instead of constructing a [cutselect.Catalog]
// by hand and silently drifting from what [cutselect.LoadReader] actually does.
package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cutselect/cutselect"
)

// Cut is a builder-friendly cut record. The zero-cost fields are omitted from the marshaled JSON
// so that an un-costed Cut exercises exactly the same default path as an omitted JSON field.
type Cut struct {
	Leaves   []string
	InvCost  int
	hasArea  bool
	areaCost int
	hasDepth bool
	depth    int
}

// Leaves builds a bare leaf-list cut: every cost field takes the catalog loader's defaults.
func Leaves(leaves ...string) Cut { return Cut{Leaves: leaves} }

// WithCosts returns a copy of c carrying explicit costs, matching the catalog JSON's object cut
// form (`{"leaves":[...], "inv_cost":..., "area_cost":..., "depth_cost":...}`).
func (c Cut) WithCosts(inv, area, depth int) Cut {
	c.InvCost = inv
	c.hasArea, c.areaCost = true, area
	c.hasDepth, c.depth = true, depth
	return c
}

func (c Cut) marshal() any {
	leaves := c.Leaves
	if leaves == nil {
		leaves = []string{} // an un-set leaf list means "no leaves", never JSON null.
	}
	if c.InvCost == 0 && !c.hasArea && !c.hasDepth {
		return leaves
	}
	obj := map[string]any{"leaves": leaves}
	if c.InvCost != 0 {
		obj["inv_cost"] = c.InvCost
	}
	if c.hasArea {
		obj["area_cost"] = c.areaCost
	}
	if c.hasDepth {
		obj["depth_cost"] = c.depth
	}
	return obj
}

// Builder assembles a cuts catalog document field by field.
type Builder struct {
	nodes   []map[string]any
	inputs  []string
	outputs []string
}

// New starts an empty catalog builder.
func New() *Builder { return &Builder{} }

// Node appends a node with the given cuts, in order.
func (b *Builder) Node(name string, cuts ...Cut) *Builder {
	cutVals := make([]any, len(cuts))
	for i, c := range cuts {
		cutVals[i] = c.marshal()
	}
	b.nodes = append(b.nodes, map[string]any{"name": name, "cuts": cutVals})
	return b
}

// Inputs sets the catalog's declared primary inputs.
func (b *Builder) Inputs(names ...string) *Builder { b.inputs = names; return b }

// Outputs sets the catalog's declared outputs.
func (b *Builder) Outputs(names ...string) *Builder { b.outputs = names; return b }

// Build marshals the assembled document and loads it via [cutselect.LoadReader].
func (b *Builder) Build(ctx context.Context) (*cutselect.Catalog, error) {
	doc := map[string]any{"nodes": b.nodes}
	if b.inputs != nil {
		doc["inputs"] = b.inputs
	}
	if b.outputs != nil {
		doc["outputs"] = b.outputs
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling fixture catalog: %w", err)
	}
	return cutselect.LoadReader(ctx, bytes.NewReader(data))
}
