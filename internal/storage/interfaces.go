// Package storage provides composable storage interfaces for Activity
// Architect.
//
// The durable store is an external collaborator of the matching engine: it
// holds the canonical catalog, activities users author and the taxonomy
// edits (per-activity dimension overrides). Interfaces are small and focused
// so backends and decorators can implement them independently.
package storage

import (
	"context"

	"github.com/scrypster/activity-architect/pkg/types"
)

// CatalogStore holds the canonical dimension and activity catalog.
type CatalogStore interface {
	// ListDimensions returns every dimension in display order.
	ListDimensions(ctx context.Context) (types.DimensionCatalog, error)

	// ListActivities returns catalog activities in insertion order.
	ListActivities(ctx context.Context) ([]types.Activity, error)

	// ReplaceCatalog replaces every dimension and catalog activity in one
	// transaction. Activities are inserted batchSize at a time (all at once
	// when batchSize <= 0). On error nothing is written.
	ReplaceCatalog(ctx context.Context, dims []types.Dimension, activities []types.Activity, batchSize int) error

	// QueryActivitiesByDimension returns catalog activities whose raw score
	// on key lies in [min, max]. Activities with no score on key are not
	// returned; this is a raw-data query and does not apply the neutral
	// default or user overrides.
	QueryActivitiesByDimension(ctx context.Context, key string, min, max float64) ([]types.Activity, error)
}

// CustomActivityStore holds activities authored during a session
// (namespace types.NamespaceCustomActivities).
type CustomActivityStore interface {
	// SaveCustomActivity creates or replaces the custom activity with the
	// same name. A new activity gets an ID when it has none.
	SaveCustomActivity(ctx context.Context, activity *types.Activity) error

	// ListCustomActivities returns custom activities in creation order.
	ListCustomActivities(ctx context.Context) ([]types.Activity, error)

	// DeleteCustomActivity removes a custom activity by name.
	// Returns ErrNotFound if it does not exist.
	DeleteCustomActivity(ctx context.Context, name string) error
}

// OverrideStore persists the override layer
// (namespace types.NamespaceTaxonomyEdits).
type OverrideStore interface {
	// SetOverride upserts one override value.
	SetOverride(ctx context.Context, activityName, key string, value float64) error

	// LoadOverrides returns every stored override.
	LoadOverrides(ctx context.Context) (types.Overrides, error)

	// ClearOverrides removes every stored override.
	ClearOverrides(ctx context.Context) error
}

// Store composes every storage concern behind one handle.
type Store interface {
	CatalogStore
	CustomActivityStore
	OverrideStore

	// Close releases the backend's resources.
	Close() error
}
