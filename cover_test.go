package cutselect_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/cutselect/cutselect"
	"github.com/cutselect/cutselect/internal/test/fixture"
)

func TestWalkCover_VisitsEachNodeOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// Diamond: z depends on both x and y, which both depend on a. a must be visited exactly
	// once despite two incoming edges.
	cat, err := fixture.New().
		Node("a", fixture.Leaves("i")).
		Node("x", fixture.Leaves("a")).
		Node("y", fixture.Leaves("a")).
		Node("z", fixture.Leaves("x", "y")).
		Inputs("i").
		Outputs("z").
		Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cover := Cover{Catalog: cat, Chosen: map[string]int{"a": 0, "x": 0, "y": 0, "z": 0}}

	var mu sync.Mutex
	visits := map[string]int{}
	err = WalkCover(ctx, cover, func(name string, _ Cut) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		visits[name]++
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"a": 1, "x": 1, "y": 1, "z": 1}
	if diff := cmp.Diff(want, visits); diff != "" {
		t.Errorf("visit counts differ (-want +got):\n%s", diff)
	}
}

func TestWalkCover_MissingChosenCutIsModelError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat, err := fixture.New().
		Node("a", fixture.Leaves("i")).
		Inputs("i").
		Outputs("a").
		Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cover := Cover{Catalog: cat, Chosen: map[string]int{}} // "a" never recorded as chosen
	err = WalkCover(ctx, cover, func(string, Cut) (bool, error) { return true, nil })
	if !errors.Is(err, ErrModelError) {
		t.Errorf("got %v, want ErrModelError", err)
	}
}

func TestWalkCover_DoesNotDescendWhenToldNotTo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat, err := fixture.New().
		Node("a", fixture.Leaves("i")).
		Node("b", fixture.Leaves("a")).
		Inputs("i").
		Outputs("b").
		Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cover := Cover{Catalog: cat, Chosen: map[string]int{"a": 0, "b": 0}}

	var mu sync.Mutex
	visited := map[string]bool{}
	err = WalkCover(ctx, cover, func(name string, _ Cut) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		visited[name] = true
		return false, nil // never descend
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited["a"] {
		t.Error("descend=false at the root must stop the walk from reaching its leaves")
	}
	if !visited["b"] {
		t.Error("the root itself must always be visited")
	}
}

func TestLongestPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat, err := fixture.New().
		Node("a", fixture.Leaves("i").WithCosts(0, 1, 2)).
		Node("b", fixture.Leaves("a").WithCosts(0, 1, 3)).
		Inputs("i").
		Outputs("b").
		Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cover := Cover{Catalog: cat, Chosen: map[string]int{"a": 0, "b": 0}}
	got, err := LongestPath(cover)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("got %d, want 5 (depth_cost 2 + 3)", got)
	}
}

func TestLongestPath_DedupsRepeatedLeafInOneCut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// z's chosen cut lists a twice; it must still only be walked (and counted) once.
	cat, err := fixture.New().
		Node("a", fixture.Leaves("i").WithCosts(0, 1, 1)).
		Node("z", fixture.Leaves("a", "a").WithCosts(0, 1, 1)).
		Inputs("i").
		Outputs("z").
		Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cover := Cover{Catalog: cat, Chosen: map[string]int{"a": 0, "z": 0}}
	got, err := LongestPath(cover)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("got %d, want 2 (depth_cost 1 + 1)", got)
	}
}
