package types

import "sort"

// Dimension is a named scoring axis. Scores on a dimension are reals in
// [MinScore, MaxScore].
type Dimension struct {
	// Key is the stable identifier referenced by activity scores and targets.
	Key string `json:"key" yaml:"key"`

	// Label is the human-readable name.
	Label string `json:"label" yaml:"label"`

	// Description explains what the dimension measures.
	Description string `json:"description" yaml:"description"`

	// Category groups related dimensions for display.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Order is the display sort key. It need not be contiguous.
	Order int `json:"order" yaml:"order"`
}

// DimensionCatalog is an ordered collection of dimensions. Order of the slice
// is the display order used everywhere dimension keys are listed.
type DimensionCatalog []Dimension

// SortDimensions returns a copy of dims ordered by Order, then Key. The key
// tie-break keeps the result deterministic when the source was unordered.
func SortDimensions(dims []Dimension) DimensionCatalog {
	out := make(DimensionCatalog, len(dims))
	copy(out, dims)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Keys returns the dimension keys in display order.
func (c DimensionCatalog) Keys() []string {
	keys := make([]string, len(c))
	for i, d := range c {
		keys[i] = d.Key
	}
	return keys
}

// Lookup returns the dimension with the given key.
func (c DimensionCatalog) Lookup(key string) (Dimension, bool) {
	for _, d := range c {
		if d.Key == key {
			return d, true
		}
	}
	return Dimension{}, false
}

// Has reports whether key is part of the catalog.
func (c DimensionCatalog) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Label returns the label for key, falling back to the key itself.
func (c DimensionCatalog) Label(key string) string {
	if d, ok := c.Lookup(key); ok && d.Label != "" {
		return d.Label
	}
	return key
}

// ByCategory groups dimensions by category, preserving display order inside
// each group.
func (c DimensionCatalog) ByCategory() map[string]DimensionCatalog {
	groups := make(map[string]DimensionCatalog)
	for _, d := range c {
		groups[d.Category] = append(groups[d.Category], d)
	}
	return groups
}
