// Package main provides the architect command line tool for querying and
// curating the activity catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "architect",
		Short: "Explore and curate the activity catalog",
		Long: `architect filters a catalog of activities by target scores on
psychological, social and practical dimensions.

Set a target on one or more dimensions and every activity whose score is
within the tolerance on all of them matches. Nothing matching is an
invitation to add a new activity.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{Level: g.logLevel, Format: "console", Output: cmd.ErrOrStderr()})
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		dimensionsCmd(g),
		matchCmd(g),
		analyzeCmd(g),
		seedCmd(g),
		exportCmd(g),
		rangeCmd(g),
		editCmd(g),
		resetEditsCmd(g),
		addCmd(g),
		removeCmd(g),
		backupCmd(g),
		restoreCmd(g),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "architect version %s\n", version)
		},
	}
}

// loadConfig reads --config when given, the default locations otherwise.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load()
}
