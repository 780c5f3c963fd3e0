package engine

import (
	"math"
	"strconv"

	"github.com/scrypster/activity-architect/pkg/types"
)

// BandFor buckets a delta: close (<= 1), medium (<= 2), far.
func BandFor(delta float64) Band {
	switch {
	case delta <= 1:
		return BandClose
	case delta <= 2:
		return BandMedium
	default:
		return BandFar
	}
}

// FormatScore renders a score with one decimal for display. Comparisons must
// never use the formatted value.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Analyze builds the dimension-by-dimension comparison of activity against
// target: active dimensions in closeness order, then the rest in display
// order.
func (m Matcher) Analyze(activity types.Activity, target types.TargetVector) Analysis {
	return m.analyze(activity, target, math.Inf(1))
}

// AnalyzeWithin is Analyze plus a tolerance check on the filtered rows.
func (m Matcher) AnalyzeWithin(activity types.Activity, target types.TargetVector, tolerance float64) Analysis {
	return m.analyze(activity, target, tolerance)
}

func (m Matcher) analyze(activity types.Activity, target types.TargetVector, tolerance float64) Analysis {
	r := m.resolver()
	checker, _ := r.(EditChecker)

	row := func(key string) DimensionRow {
		d, _ := m.Dimensions.Lookup(key)
		out := DimensionRow{
			Key:         key,
			Label:       m.Dimensions.Label(key),
			Description: d.Description,
			Category:    d.Category,
			Value:       r.Resolve(activity, key),
		}
		if checker != nil {
			out.Edited = checker.IsEdited(activity.Name, key)
		}
		return out
	}

	active := m.ActiveDimensions(target)
	ordered := m.ClosenessOrder(activity, target, active)

	a := Analysis{
		Activity:        activity.Name,
		Filtered:        make([]DimensionRow, 0, len(ordered)),
		WithinTolerance: true,
	}
	for _, key := range ordered {
		dr := row(key)
		dr.Target = target[key]
		dr.Delta = math.Abs(dr.Value - dr.Target)
		dr.Band = BandFor(dr.Delta)
		if !(dr.Delta <= tolerance) {
			a.WithinTolerance = false
		}
		a.Filtered = append(a.Filtered, dr)
	}

	inactive := m.InactiveDimensions(target)
	a.Other = make([]DimensionRow, 0, len(inactive))
	for _, key := range inactive {
		a.Other = append(a.Other, row(key))
	}
	return a
}
