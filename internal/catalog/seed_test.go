package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/storage/sqlite"
	"github.com/scrypster/activity-architect/pkg/types"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSeed_WritesInBatches(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	c := &catalog.Catalog{
		Dimensions: types.DimensionCatalog{{Key: "flow", Label: "Flow", Order: 10}},
		Activities: manyActivities(1000),
	}
	require.NoError(t, catalog.Seed(ctx, store, c))

	acts, err := store.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 1000)
	assert.Equal(t, "Activity 0000", acts[0].Name)
	assert.Equal(t, "Activity 0450", acts[450].Name, "batches keep catalog order")
	assert.Equal(t, "Activity 0999", acts[999].Name)
}

func TestSeed_ReplacesPreviousCatalog(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, catalog.Seed(ctx, store, defaultCatalog(t)))
	require.NoError(t, catalog.Seed(ctx, store, &catalog.Catalog{
		Dimensions: types.DimensionCatalog{{Key: "cost", Label: "Cost"}},
	}))

	got, err := catalog.FromStore(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"cost"}, got.Dimensions.Keys())
	assert.Empty(t, got.Activities)
}

func TestFromStore_RoundTripsDefault(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	def := defaultCatalog(t)
	require.NoError(t, catalog.Seed(ctx, store, def))

	got, err := catalog.FromStore(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, def.Dimensions, got.Dimensions)
	require.Len(t, got.Activities, len(def.Activities))
	for i := range def.Activities {
		assert.Equal(t, def.Activities[i].Name, got.Activities[i].Name)
		assert.Equal(t, def.Activities[i].Scores, got.Activities[i].Scores)
	}
}

func TestFromStore_EmptyStore(t *testing.T) {
	_, err := catalog.FromStore(context.Background(), newStore(t))
	assert.ErrorIs(t, err, catalog.ErrEmptyStore)
}
