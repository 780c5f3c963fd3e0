package catalog

import (
	"context"
	"fmt"

	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/storage"
)

// SeedBatchSize is the number of activities inserted per batch.
const SeedBatchSize = 450

// Seed replaces the catalog held by store with c. The whole catalog is
// written in one store transaction, activities in batches of SeedBatchSize,
// so a failed seed leaves the previous catalog in place.
func Seed(ctx context.Context, store storage.CatalogStore, c *Catalog) error {
	if err := store.ReplaceCatalog(ctx, c.Dimensions, c.Activities, SeedBatchSize); err != nil {
		return fmt.Errorf("catalog: seed: %w", err)
	}

	logging.Info().
		Int("dimensions", len(c.Dimensions)).
		Int("activities", len(c.Activities)).
		Int("batches", (len(c.Activities)+SeedBatchSize-1)/SeedBatchSize).
		Msg("catalog seeded")
	return nil
}

// FromStore reads the catalog held by store. An empty store returns
// ErrEmptyStore.
func FromStore(ctx context.Context, store storage.CatalogStore) (*Catalog, error) {
	dims, err := store.ListDimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list dimensions: %w", err)
	}
	acts, err := store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list activities: %w", err)
	}
	if len(dims) == 0 {
		return nil, ErrEmptyStore
	}
	return &Catalog{Dimensions: dims, Activities: acts}, nil
}
