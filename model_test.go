package cutselect_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/cutselect/cutselect"
	"github.com/cutselect/cutselect/internal/test/fixture"
)

func TestParseObjectiveMode(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		in      string
		want    ObjectiveMode
		wantErr bool
	}{
		{in: "og", want: ObjOriginal},
		{in: "original", want: ObjOriginal},
		{in: "inv", want: ObjInv},
		{in: "area", want: ObjArea},
		{in: "depth", want: ObjDepth},
		{in: "overall", want: ObjOverall},
		{in: "bogus", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseObjectiveMode(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrBadObjective) {
					t.Errorf("got err %v, want ErrBadObjective", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildModel_RejectsFixDepthWithoutDepthBound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat, err := fixture.New().Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	fd := 3
	if _, err := BuildModel(ctx, cat, 0, &fd); !errors.Is(err, ErrModelError) {
		t.Errorf("got %v, want ErrModelError", err)
	}
}
