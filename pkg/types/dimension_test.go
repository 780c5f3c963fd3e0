package types_test

import (
	"reflect"
	"testing"

	"github.com/scrypster/activity-architect/pkg/types"
)

func TestSortDimensions_OrderThenKey(t *testing.T) {
	dims := []types.Dimension{
		{Key: "risk", Order: 30},
		{Key: "flow", Order: 10},
		{Key: "cost", Order: 20},
		{Key: "barrier", Order: 20},
	}

	got := types.SortDimensions(dims).Keys()
	want := []string{"flow", "barrier", "cost", "risk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortDimensions() keys = %v, want %v", got, want)
	}

	// Input must be left untouched.
	if dims[0].Key != "risk" {
		t.Errorf("SortDimensions mutated its input: first key = %q", dims[0].Key)
	}
}

func TestDimensionCatalog_Lookup(t *testing.T) {
	cat := types.DimensionCatalog{
		{Key: "flow", Label: "Flow Accessibility", Category: types.CategoryEngagement},
		{Key: "risk", Category: types.CategoryEngagement},
		{Key: "cost", Label: "Financial Investment", Category: types.CategoryAccessibility},
	}

	if !cat.Has("flow") || cat.Has("mastery") {
		t.Error("Has() returned unexpected membership")
	}
	if got := cat.Label("flow"); got != "Flow Accessibility" {
		t.Errorf("Label(flow) = %q", got)
	}
	if got := cat.Label("risk"); got != "risk" {
		t.Errorf("Label(risk) = %q, want key fallback", got)
	}
	if got := cat.Label("unknown"); got != "unknown" {
		t.Errorf("Label(unknown) = %q, want key fallback", got)
	}

	groups := cat.ByCategory()
	if len(groups[types.CategoryEngagement]) != 2 {
		t.Errorf("engagement group size = %d, want 2", len(groups[types.CategoryEngagement]))
	}
	if groups[types.CategoryEngagement][0].Key != "flow" {
		t.Errorf("group order not preserved: %v", groups[types.CategoryEngagement].Keys())
	}
}

func TestScoresAndOverridesClone(t *testing.T) {
	s := types.Scores{"flow": 7}
	c := s.Clone()
	c["flow"] = 1
	if s["flow"] != 7 {
		t.Error("Scores.Clone shares storage with the original")
	}
	if types.Scores(nil).Clone() != nil {
		t.Error("nil Scores should clone to nil")
	}

	o := types.Overrides{"Chess": {"flow": 9}}
	oc := o.Clone()
	oc["Chess"]["flow"] = 2
	if o["Chess"]["flow"] != 9 {
		t.Error("Overrides.Clone is not deep")
	}
}

func TestTargetVector_IsActive(t *testing.T) {
	tv := types.TargetVector{"flow": 8, "risk": 0, "cost": -1}
	if !tv.IsActive("flow") {
		t.Error("flow should be active")
	}
	for _, k := range []string{"risk", "cost", "missing"} {
		if tv.IsActive(k) {
			t.Errorf("%s should be inactive", k)
		}
	}
}
