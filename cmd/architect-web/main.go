// cmd/architect-web serves the Activity Architect HTTP API and session
// socket.
//
// Startup sequence:
//  1. Load configuration (defaults, architect.yaml, ARCHITECT_* env).
//  2. Open the store behind a circuit breaker and seed the catalog.
//  3. Restore the session (custom activities and taxonomy edits).
//  4. Optionally watch the catalog file for changes.
//  5. Serve until SIGINT/SIGTERM, then shut down gracefully.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrypster/activity-architect/internal/app"
	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "architect-web: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve runs the server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Warn().Err(err).Msg("store close error")
		}
	}()

	if err := a.WatchCatalog(ctx); err != nil {
		logging.Warn().Err(err).Str("path", cfg.Catalog.Path).Msg("catalog watch disabled")
	}

	addr, done, err := server.Start(ctx, cfg, a.Session, server.Options{
		Version:    version,
		StoreState: a.Store.State,
	})
	if err != nil {
		return err
	}
	logging.Info().
		Str("addr", "http://"+addr).
		Str("version", version).
		Int("dimensions", len(a.Catalog.Dimensions)).
		Int("activities", len(a.Catalog.Activities)).
		Msg("activity architect running")

	<-ctx.Done()
	logging.Info().Msg("shutting down gracefully")
	<-done
	return nil
}
