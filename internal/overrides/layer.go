// Package overrides implements the taxonomy edit layer: per-(activity,
// dimension) values that shadow catalog scores without mutating the catalog.
package overrides

import (
	"github.com/scrypster/activity-architect/pkg/types"
)

// Layer holds user overrides keyed by activity name, then dimension key.
//
// Layer is not safe for concurrent use; callers serialize access (the
// session package does this with its own mutex).
type Layer struct {
	values map[string]map[string]float64
}

// New returns an empty Layer.
func New() *Layer {
	return &Layer{values: make(map[string]map[string]float64)}
}

// FromOverrides returns a Layer seeded with a deep copy of o.
func FromOverrides(o types.Overrides) *Layer {
	l := New()
	l.Load(o)
	return l
}

// Set records or replaces one override. The value is stored as given; range
// checking belongs to whoever collected it.
func (l *Layer) Set(activityName, key string, value float64) {
	dims, ok := l.values[activityName]
	if !ok {
		dims = make(map[string]float64)
		l.values[activityName] = dims
	}
	dims[key] = value
}

// Get returns the override for (activityName, key), if any.
func (l *Layer) Get(activityName, key string) (float64, bool) {
	v, ok := l.values[activityName][key]
	return v, ok
}

// IsEdited reports whether (activityName, key) is overridden.
func (l *Layer) IsEdited(activityName, key string) bool {
	_, ok := l.Get(activityName, key)
	return ok
}

// ClearAll drops every override. The old map is swapped out in one
// assignment so no reader observes a partially cleared layer.
func (l *Layer) ClearAll() {
	l.values = make(map[string]map[string]float64)
}

// Resolve returns the override if present, else the raw score, else
// types.NeutralScore. It implements engine.Resolver.
func (l *Layer) Resolve(activity types.Activity, key string) float64 {
	if v, ok := l.Get(activity.Name, key); ok {
		return v
	}
	if v, ok := activity.Scores.Get(key); ok {
		return v
	}
	return types.NeutralScore
}

// Effective returns a copy of activity with every catalog dimension resolved
// through the layer. The input activity is not modified.
func (l *Layer) Effective(activity types.Activity, keys []string) types.Activity {
	out := activity
	out.Scores = make(types.Scores, len(keys))
	for _, key := range keys {
		out.Scores[key] = l.Resolve(activity, key)
	}
	return out
}

// Snapshot returns a deep copy of the current overrides, suitable for
// persistence.
func (l *Layer) Snapshot() types.Overrides {
	return types.Overrides(l.values).Clone()
}

// Load replaces the layer's contents with a deep copy of o.
func (l *Layer) Load(o types.Overrides) {
	l.values = map[string]map[string]float64(o.Clone())
}

// Len returns the number of individual (activity, dimension) overrides.
func (l *Layer) Len() int {
	n := 0
	for _, dims := range l.values {
		n += len(dims)
	}
	return n
}
