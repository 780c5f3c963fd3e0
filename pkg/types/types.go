// Package types defines the core data structures for Activity Architect.
// These types represent scoring dimensions, scored activities, user taxonomy
// edits and the target vectors users tune when exploring the catalog.
package types

// Score domain constants. Every dimension score lives on the real interval
// [MinScore, MaxScore].
const (
	// MinScore is the lowest value a dimension score can take.
	MinScore = 0.0

	// MaxScore is the highest value a dimension score can take.
	MaxScore = 10.0

	// NeutralScore is used whenever an activity has no value for a dimension.
	NeutralScore = 5.0
)

// Tolerance constants for match queries.
const (
	// DefaultTolerance is the tolerance a new session starts with.
	DefaultTolerance = 2.0

	// MinTolerance is the smallest tolerance the input controls accept.
	MinTolerance = 0.5

	// MaxTolerance is the largest tolerance the input controls accept.
	MaxTolerance = 5.0
)

// Storage namespaces for user-local state.
const (
	// NamespaceCustomActivities holds activities authored during a session.
	NamespaceCustomActivities = "custom_activities"

	// NamespaceTaxonomyEdits holds per-activity dimension overrides.
	NamespaceTaxonomyEdits = "taxonomy_edits"
)

// Dimension category constants. Categories are informational only and never
// influence matching.
const (
	CategoryEngagement    = "engagement"
	CategoryTemporal      = "temporal"
	CategoryAccessibility = "accessibility"
	CategorySocial        = "social"
	CategoryPhysical      = "physical"
	CategoryCognitive     = "cognitive"
	CategoryAutonomy      = "autonomy"
	CategoryOutcome       = "outcome"
	CategoryMechanics     = "mechanics"
	CategoryEmotional     = "emotional"
	CategoryChakra        = "chakra"
	CategoryMaslow        = "maslow"
)

// ValidCategories lists every category used by the canonical catalog.
var ValidCategories = []string{
	CategoryEngagement,
	CategoryTemporal,
	CategoryAccessibility,
	CategorySocial,
	CategoryPhysical,
	CategoryCognitive,
	CategoryMechanics,
	CategoryAutonomy,
	CategoryOutcome,
	CategoryEmotional,
	CategoryChakra,
	CategoryMaslow,
}

// IsValidCategory reports whether category is one of ValidCategories.
// Empty string is considered valid (means uncategorized).
func IsValidCategory(category string) bool {
	if category == "" {
		return true
	}
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}
