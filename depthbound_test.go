package cutselect_test

import (
	"context"
	"testing"
	"time"

	. "github.com/cutselect/cutselect"
	"github.com/cutselect/cutselect/internal/test/fixture"
)

func TestDepthUpperBound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("chain", func(t *testing.T) {
		t.Parallel()
		// i -> a (depth 1) -> b (depth 2) -> c (depth 3, root)
		cat, err := fixture.New().
			Node("a", fixture.Leaves("i")).
			Node("b", fixture.Leaves("a")).
			Node("c", fixture.Leaves("b")).
			Inputs("i").
			Outputs("c").
			Build(ctx)
		if err != nil {
			t.Fatal(err)
		}
		ub, err := DepthUpperBound(ctx, cat)
		if err != nil {
			t.Fatal(err)
		}
		if ub < 3 {
			t.Errorf("upper bound %d must never underestimate the true minimum depth of 3", ub)
		}
	})

	t.Run("cycle does not hang", func(t *testing.T) {
		t.Parallel()
		// A cut referencing its own node is always filtered as a self-cut (depthDFS skips it
		// the same way BuildModel does), so a two-node mutual cycle is the smallest reachable
		// cycle a malformed catalog could still present to the depth bounder.
		cat, err := fixture.New().
			Node("a", fixture.Leaves("b")).
			Node("b", fixture.Leaves("a")).
			Outputs("a").
			Build(ctx)
		if err != nil {
			t.Fatal(err)
		}
		done := make(chan struct{})
		var ub int
		go func() {
			ub, _ = DepthUpperBound(ctx, cat)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("DepthUpperBound did not return for a cyclic catalog")
		}
		if ub < 1 {
			t.Errorf("cyclic-catalog upper bound must still be at least 1, got %d", ub)
		}
	})
}
