package engine

import (
	"math"
	"sort"

	"github.com/scrypster/activity-architect/pkg/types"
)

// Matcher binds the dimension catalog and a resolver. It is a plain value;
// copying it is cheap and all methods are read-only.
type Matcher struct {
	// Dimensions drives which keys exist and their display order.
	Dimensions types.DimensionCatalog

	// Resolver supplies effective scores. Nil means RawResolver.
	Resolver Resolver
}

// NewMatcher returns a Matcher over dims. A nil resolver falls back to raw
// catalog scores.
func NewMatcher(dims types.DimensionCatalog, resolver Resolver) Matcher {
	return Matcher{Dimensions: dims, Resolver: resolver}
}

func (m Matcher) resolver() Resolver {
	if m.Resolver == nil {
		return RawResolver{}
	}
	return m.Resolver
}

// ActiveDimensions returns the keys whose target is strictly positive, in
// catalog display order. Target keys that are not in the catalog are ignored.
func (m Matcher) ActiveDimensions(target types.TargetVector) []string {
	active := make([]string, 0, len(target))
	for _, d := range m.Dimensions {
		if target[d.Key] > 0 {
			active = append(active, d.Key)
		}
	}
	return active
}

// InactiveDimensions returns the catalog keys with no positive target, in
// display order.
func (m Matcher) InactiveDimensions(target types.TargetVector) []string {
	inactive := make([]string, 0, len(m.Dimensions))
	for _, d := range m.Dimensions {
		if !(target[d.Key] > 0) {
			inactive = append(inactive, d.Key)
		}
	}
	return inactive
}

// Matches filters activities to those within tolerance of every active
// target. With no active dimension every activity is returned. The result
// preserves input order and is always a fresh slice.
func (m Matcher) Matches(activities []types.Activity, target types.TargetVector, tolerance float64) []types.Activity {
	return m.matchActive(activities, m.ActiveDimensions(target), target, tolerance)
}

func (m Matcher) matchActive(activities []types.Activity, active []string, target types.TargetVector, tolerance float64) []types.Activity {
	if len(active) == 0 {
		out := make([]types.Activity, len(activities))
		copy(out, activities)
		return out
	}

	r := m.resolver()
	out := make([]types.Activity, 0, len(activities))
	for _, a := range activities {
		if withinAll(r, a, active, target, tolerance) {
			out = append(out, a)
		}
	}
	return out
}

// withinAll is the conjunction over active dimensions. The comparison is
// written as !(delta <= tolerance) so a NaN tolerance excludes rather than
// admits.
func withinAll(r Resolver, a types.Activity, active []string, target types.TargetVector, tolerance float64) bool {
	for _, key := range active {
		delta := math.Abs(r.Resolve(a, key) - target[key])
		if !(delta <= tolerance) {
			return false
		}
	}
	return true
}

// ClosenessOrder sorts the given active keys by ascending delta between the
// activity's effective score and the target. Ties keep their order from
// active.
func (m Matcher) ClosenessOrder(activity types.Activity, target types.TargetVector, active []string) []string {
	r := m.resolver()
	type keyed struct {
		key   string
		delta float64
	}
	rows := make([]keyed, len(active))
	for i, key := range active {
		rows[i] = keyed{key: key, delta: math.Abs(r.Resolve(activity, key) - target[key])}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].delta < rows[j].delta
	})

	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.key
	}
	return out
}

// Query runs Matches and classifies the outcome.
func (m Matcher) Query(activities []types.Activity, target types.TargetVector, tolerance float64) Result {
	active := m.ActiveDimensions(target)
	res := Result{
		Active:     active,
		Tolerance:  tolerance,
		Activities: m.matchActive(activities, active, target, tolerance),
		Considered: len(activities),
	}

	switch {
	case len(activities) == 0:
		res.State = StateEmptyCatalog
	case len(active) == 0:
		res.State = StateUnconstrained
	case len(res.Activities) == 0:
		res.State = StateNoMatches
	default:
		res.State = StateMatched
	}
	return res
}
