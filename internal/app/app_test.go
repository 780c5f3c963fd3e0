package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/activity-architect/internal/app"
	"github.com/scrypster/activity-architect/internal/config"
)

const smallCatalog = `
dimensions:
  - key: flow
    label: Flow Accessibility
  - key: risk
    label: Risk/Thrill Level
activities:
  - name: Chess
    scores: {flow: 7, risk: 2}
`

func sqliteConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.DataPath = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestNew_DefaultCatalogSeedsStore(t *testing.T) {
	cfg := sqliteConfig(t)
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.FileExists(t, cfg.SQLitePath())
	assert.Len(t, a.Session.Dimensions(), 57)

	dims, err := a.Store.ListDimensions(context.Background())
	require.NoError(t, err)
	assert.Len(t, dims, 57)
	assert.Equal(t, "closed", a.Store.State())
}

func TestNew_CustomCatalogWithoutSeeding(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "catalog.yaml")
	cfg.Catalog.SeedStore = false
	require.NoError(t, os.WriteFile(cfg.Catalog.Path, []byte(smallCatalog), 0o600))

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, []string{"flow", "risk"}, a.Session.Dimensions().Keys())
	dims, err := a.Store.ListDimensions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dims)
}

func TestNew_StoreSourceReadsSeededCatalog(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(cfg.Catalog.Path, []byte(smallCatalog), 0o600))

	// first run seeds the small catalog
	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// the file is gone and no path is set; the store still has the catalog
	require.NoError(t, os.Remove(cfg.Catalog.Path))
	cfg.Catalog.Path = ""
	cfg.Catalog.Source = "store"

	b, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()
	assert.Equal(t, []string{"flow", "risk"}, b.Session.Dimensions().Keys())
	require.Len(t, b.Session.Activities(), 1)
	assert.Equal(t, "Chess", b.Session.Activities()[0].Name)
}

func TestNew_StoreSourceFallsBackWhenEmpty(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Catalog.Source = "store"

	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	assert.Len(t, a.Session.Dimensions(), 57)

	dims, err := a.Store.ListDimensions(ctx)
	require.NoError(t, err)
	assert.Len(t, dims, 57, "the fallback catalog is seeded")
}

func TestNew_SessionSurvivesRestart(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Session.Edit(ctx, "Chess", "flow", 2))
	require.NoError(t, a.Close())

	b, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()
	assert.True(t, b.Session.IsEdited("Chess", "flow"))
}

func TestNew_MissingCatalogFile(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := app.New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestWatchCatalog_ReloadsSession(t *testing.T) {
	cfg := sqliteConfig(t)
	dir := t.TempDir()
	cfg.Catalog.Path = filepath.Join(dir, "catalog.yaml")
	cfg.Catalog.Watch = true
	require.NoError(t, os.WriteFile(cfg.Catalog.Path, []byte(smallCatalog), 0o600))

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	require.NoError(t, a.WatchCatalog(context.Background()))

	updated := smallCatalog + `  - name: Tetris
    scores: {flow: 9, risk: 1}
`
	tmp := filepath.Join(dir, "catalog.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(updated), 0o600))
	require.NoError(t, os.Rename(tmp, cfg.Catalog.Path))

	assert.Eventually(t, func() bool {
		return len(a.Session.Activities()) == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchCatalog_DisabledIsNoop(t *testing.T) {
	a, err := app.New(context.Background(), sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	assert.NoError(t, a.WatchCatalog(context.Background()))
}
