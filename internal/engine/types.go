// Package engine provides the matching engine: it filters a catalog of
// activities against a sparse target vector and ranks dimensions by how close
// an activity comes to each target.
//
// Every operation is a pure function of its inputs. The engine holds no state
// between calls, never mutates the activities it is given, and never returns
// an error: empty catalogs, unknown keys and odd tolerances all produce a
// well-defined result.
package engine

import (
	"github.com/scrypster/activity-architect/pkg/types"
)

// Resolver returns the effective score of an activity on a dimension. It is
// the single read path the engine uses; raw catalog scores are never read
// directly.
type Resolver interface {
	Resolve(activity types.Activity, key string) float64
}

// EditChecker is implemented by resolvers that can tell whether a value comes
// from a user edit rather than the catalog.
type EditChecker interface {
	IsEdited(activityName, key string) bool
}

// RawResolver resolves straight from the catalog: the raw score if present,
// otherwise types.NeutralScore.
type RawResolver struct{}

// Resolve implements Resolver.
func (RawResolver) Resolve(activity types.Activity, key string) float64 {
	if v, ok := activity.Scores.Get(key); ok {
		return v
	}
	return types.NeutralScore
}

// State classifies the outcome of a query so hosts can present each case
// distinctly.
type State string

const (
	// StateUnconstrained means no dimension is active; every activity is returned.
	StateUnconstrained State = "unconstrained"

	// StateMatched means at least one activity satisfies every active target.
	StateMatched State = "matched"

	// StateNoMatches means targets are active and nothing satisfies them.
	// This is an expected outcome (an invitation to draft a new activity),
	// not an error.
	StateNoMatches State = "no_matches"

	// StateEmptyCatalog means there was nothing to filter.
	StateEmptyCatalog State = "empty_catalog"
)

// Result is the outcome of a Query.
type Result struct {
	// State classifies the result.
	State State `json:"state"`

	// Active lists the active dimension keys in display order.
	Active []string `json:"active"`

	// Tolerance is the tolerance the query ran with.
	Tolerance float64 `json:"tolerance"`

	// Activities holds the matches in input order.
	Activities []types.Activity `json:"activities"`

	// Considered is the number of activities that were filtered.
	Considered int `json:"considered"`
}

// Band buckets a delta for display.
type Band string

const (
	// BandClose is a delta of at most 1.
	BandClose Band = "close"

	// BandMedium is a delta of at most 2.
	BandMedium Band = "medium"

	// BandFar is anything larger.
	BandFar Band = "far"
)

// DimensionRow is one line of an activity's dimensional analysis.
type DimensionRow struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Value       float64 `json:"value"`
	Edited      bool    `json:"edited"`

	// Target, Delta and Band are only meaningful for filtered rows. Delta is
	// always emitted since zero is an exact match.
	Target float64 `json:"target,omitempty"`
	Delta  float64 `json:"delta"`
	Band   Band    `json:"band,omitempty"`
}

// Analysis compares a single activity against a target vector.
type Analysis struct {
	// Activity is the name of the analysed activity.
	Activity string `json:"activity"`

	// Filtered holds active dimensions, closest match first.
	Filtered []DimensionRow `json:"filtered"`

	// Other holds inactive dimensions in display order.
	Other []DimensionRow `json:"other"`

	// WithinTolerance reports whether every filtered delta is within the
	// tolerance passed to AnalyzeWithin. Analyze leaves it true.
	WithinTolerance bool `json:"within_tolerance"`
}
