// Package app wires configuration, storage, catalog and session together for
// the architect binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/internal/storage"
	"github.com/scrypster/activity-architect/internal/storage/postgres"
	"github.com/scrypster/activity-architect/internal/storage/sqlite"
)

// App holds the long-lived pieces shared by the server and the CLI.
type App struct {
	Config  *config.Config
	Store   *storage.Breaker
	Catalog *catalog.Catalog
	Session *session.Session

	watcher *catalog.Watcher
}

// OpenStore opens the configured backend and wraps it in a circuit breaker.
func OpenStore(cfg *config.Config) (*storage.Breaker, error) {
	var (
		backend storage.Store
		err     error
	)
	switch cfg.Storage.Engine {
	case "postgres":
		backend, err = postgres.NewStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("app: open postgres: %w", err)
		}
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("app: create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		backend, err = sqlite.NewStore(cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("app: open sqlite at %q: %w", cfg.SQLitePath(), err)
		}
	}

	logging.Info().Str("engine", cfg.Storage.Engine).Msg("store opened")
	return storage.NewBreaker(backend, storage.BreakerConfig{
		MaxFailures: cfg.Storage.BreakerMaxFailures,
		Timeout:     cfg.Storage.BreakerTimeout,
	}), nil
}

// LoadCatalog returns the catalog named by catalog.source. The store source
// reads the seeded catalog and never reseeds it. The file source, and the
// store source while the store is still empty, read catalog.path or the
// embedded catalog and seed the store when catalog.seed_store is set.
func LoadCatalog(ctx context.Context, cfg *config.Config, store storage.CatalogStore) (*catalog.Catalog, error) {
	if cfg.Catalog.Source == "store" && store != nil {
		c, err := catalog.FromStore(ctx, store)
		if err == nil {
			logging.Info().
				Int("dimensions", len(c.Dimensions)).
				Int("activities", len(c.Activities)).
				Msg("catalog loaded from store")
			return c, nil
		}
		if !errors.Is(err, catalog.ErrEmptyStore) {
			return nil, err
		}
		logging.Info().Msg("store holds no catalog, falling back to the catalog file")
	}

	c, err := catalog.LoadOrDefault(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.SeedStore && store != nil {
		if err := catalog.Seed(ctx, store, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New opens the store, loads the catalog and restores the session.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	c, err := LoadCatalog(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sess, err := session.New(ctx, c, store, session.Options{Tolerance: cfg.Engine.DefaultTolerance})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{Config: cfg, Store: store, Catalog: c, Session: sess}, nil
}

// WatchCatalog reloads the catalog file into the session whenever it
// changes. It is a no-op unless catalog.watch is set, catalog.path is
// non-empty and the source is file.
func (a *App) WatchCatalog(ctx context.Context) error {
	if !a.Config.Catalog.Watch || a.Config.Catalog.Path == "" || a.Config.Catalog.Source == "store" {
		return nil
	}
	a.watcher = catalog.NewWatcher(a.Config.Catalog.Path, func(c *catalog.Catalog) {
		a.Session.SetCatalog(c)
		if a.Config.Catalog.SeedStore {
			if err := catalog.Seed(ctx, a.Store, c); err != nil {
				logging.Warn().Err(err).Msg("failed to reseed store after catalog reload")
			}
		}
	})
	return a.watcher.Start()
}

// Close stops the watcher and closes the store.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	return a.Store.Close()
}
