package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrypster/activity-architect/internal/backup"
	"github.com/scrypster/activity-architect/internal/config"
)

// backupDir defaults to <data_path>/backups.
func backupDir(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(cfg.Storage.DataPath, "backups")
}

func requireSQLite(cfg *config.Config) error {
	if cfg.Storage.Engine != "sqlite" {
		return fmt.Errorf("backups are only supported for the sqlite engine (configured: %s)", cfg.Storage.Engine)
	}
	return nil
}

func backupCmd(g *globalFlags) *cobra.Command {
	var (
		dir  string
		keep int
		list bool
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the edit and custom activity store",
		Example: `  architect backup
  architect backup --dir /srv/backups --keep 7
  architect backup --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := requireSQLite(cfg); err != nil {
				return err
			}
			dir = backupDir(cfg, dir)
			out := cmd.OutOrStdout()

			if list {
				backups, err := backup.List(dir)
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Fprintf(out, "no backups in %s\n", dir)
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "CREATED\tSIZE\tPATH")
				for _, b := range backups {
					fmt.Fprintf(w, "%s\t%d\t%s\n", b.Timestamp.Format(time.RFC3339), b.Size, b.Path)
				}
				return w.Flush()
			}

			dbPath := cfg.SQLitePath()
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no database at %s: %w", dbPath, err)
			}
			info, err := backup.Create(cmd.Context(), dbPath, dir, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "backup written to %s (%d bytes)\n", info.Path, info.Size)

			deleted, err := backup.Prune(dir, keep)
			if err != nil {
				return err
			}
			if len(deleted) > 0 {
				fmt.Fprintf(out, "pruned %d old backups\n", len(deleted))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default <data_path>/backups)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N backups (0 keeps all)")
	cmd.Flags().BoolVar(&list, "list", false, "List existing backups instead of creating one")
	return cmd
}

func restoreCmd(g *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "restore [FILE]",
		Short: "Replace the store with a backup (the newest one by default)",
		Long: `restore replaces the SQLite database with a verified backup. Stop any
running architect-web process first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := requireSQLite(cfg); err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				latest, err := backup.Latest(backupDir(cfg, dir))
				if errors.Is(err, backup.ErrNoBackups) {
					return fmt.Errorf("%w in %s", err, backupDir(cfg, dir))
				}
				if err != nil {
					return err
				}
				path = latest.Path
			}

			if err := backup.Restore(cmd.Context(), path, cfg.SQLitePath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory searched when FILE is omitted")
	return cmd
}
