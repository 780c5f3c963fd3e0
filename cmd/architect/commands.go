package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scrypster/activity-architect/internal/app"
	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/pkg/types"
)

// openApp builds the app without reseeding the store; only `seed` writes
// the catalog.
func (g *globalFlags) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Catalog.SeedStore = false
	return app.New(ctx, cfg)
}

func dimensionsCmd(g *globalFlags) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "dimensions",
		Short: "List dimensions in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dims := a.Session.Dimensions()
			if category != "" {
				if !types.IsValidCategory(category) {
					return fmt.Errorf("unknown category %q", category)
				}
				dims = dims.ByCategory()[category]
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "KEY\tLABEL\tCATEGORY")
			for _, d := range dims {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Key, d.Label, d.Category)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list dimensions in this category")
	return cmd
}

func matchCmd(g *globalFlags) *cobra.Command {
	var (
		raw       map[string]string
		tolerance float64
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "List activities within tolerance of every target",
		Example: `  architect match --target risk=8 --target social=3
  architect match -t flow=9 --tolerance 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseScores(raw)
			if err != nil {
				return err
			}
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := checkKeys(a.Session.Dimensions(), targets); err != nil {
				return err
			}
			tol, err := resolveTolerance(cmd, tolerance, a.Session.Tolerance())
			if err != nil {
				return err
			}

			res := a.Session.Match(targets, tol)
			printResult(cmd.OutOrStdout(), res, a.Session.DraftFor(targets))
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&raw, "target", "t", nil, "Target score as key=value (repeatable)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", types.DefaultTolerance, "Maximum distance from each target")
	return cmd
}

func analyzeCmd(g *globalFlags) *cobra.Command {
	var (
		raw       map[string]string
		tolerance float64
	)
	cmd := &cobra.Command{
		Use:   "analyze NAME",
		Short: "Compare one activity with the targets, dimension by dimension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseScores(raw)
			if err != nil {
				return err
			}
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tol, err := resolveTolerance(cmd, tolerance, a.Session.Tolerance())
			if err != nil {
				return err
			}
			analysis, err := a.Session.AnalyzeWith(args[0], targets, tol)
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&raw, "target", "t", nil, "Target score as key=value (repeatable)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", types.DefaultTolerance, "Maximum distance from each target")
	return cmd
}

func seedCmd(g *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored catalog with a catalog file or the built-in one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := catalog.LoadOrDefault(file)
			if err != nil {
				return err
			}
			if err := catalog.Seed(cmd.Context(), store, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d dimensions and %d activities\n",
				len(c.Dimensions), len(c.Activities))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog file (YAML or JSON); defaults to the built-in catalog")
	return cmd
}

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		output    string
		fromStore bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog in the format seed --file reads",
		Example: `  architect export -o catalog.yaml
  architect export --from-store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *catalog.Catalog
			if fromStore {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				store, err := app.OpenStore(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				if c, err = catalog.FromStore(cmd.Context(), store); err != nil {
					return err
				}
			} else {
				a, err := g.openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				c = a.Catalog
			}

			data, err := catalog.Marshal(c)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d dimensions and %d activities to %s\n",
				len(c.Dimensions), len(c.Activities), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "Export the catalog seeded into the store")
	return cmd
}

func rangeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "range KEY MIN MAX",
		Short: "List stored activities whose raw score on KEY is within [MIN, MAX]",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := parseScore(args[1])
			if err != nil {
				return err
			}
			hi, err := parseScore(args[2])
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			acts, err := store.QueryActivitiesByDimension(cmd.Context(), args[0], lo, hi)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ACTIVITY\tSCORE")
			for _, act := range acts {
				fmt.Fprintf(w, "%s\t%s\n", act.Name, engine.FormatScore(act.Scores[args[0]]))
			}
			return w.Flush()
		},
	}
}

func editCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit NAME KEY VALUE",
		Short: "Override one activity's score on one dimension",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseScore(args[2])
			if err != nil {
				return err
			}
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Edit(cmd.Context(), args[0], args[1], v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s (edited)\n", args[0], args[1], engine.FormatScore(v))
			return nil
		},
	}
}

func resetEditsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-edits",
		Short: "Discard every score override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n := 0
			for _, keys := range a.Session.Edits() {
				n += len(keys)
			}
			if err := a.Session.ResetEdits(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d edits\n", n)
			return nil
		},
	}
}

func addCmd(g *globalFlags) *cobra.Command {
	var raw map[string]string
	cmd := &cobra.Command{
		Use:     "add NAME",
		Short:   "Add a custom activity",
		Example: `  architect add "Kite Surfing" --score risk=9 --score physical_exertion=8`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := parseScores(raw)
			if err != nil {
				return err
			}
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := checkKeys(a.Session.Dimensions(), scores); err != nil {
				return err
			}
			act, err := a.Session.AddActivity(cmd.Context(), args[0], types.Scores(scores))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%d scores)\n", act.Name, len(act.Scores))
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&raw, "score", "s", nil, "Score as key=value (repeatable); unset dimensions read as 5")
	return cmd
}

func removeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a custom activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteCustomActivity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

// ---- helpers ----

func parseScore(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", types.ErrInvalidScore, s)
	}
	if err := types.ValidateScore(v); err != nil {
		return 0, err
	}
	return v, nil
}

// parseScores converts key=value flags into a target vector.
func parseScores(raw map[string]string) (types.TargetVector, error) {
	out := make(types.TargetVector, len(raw))
	for k, s := range raw {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, errors.New("empty dimension key")
		}
		v, err := parseScore(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func checkKeys(dims types.DimensionCatalog, v types.TargetVector) error {
	for k := range v {
		if !dims.Has(k) {
			return fmt.Errorf("%w: %q", session.ErrUnknownDimension, k)
		}
	}
	return nil
}

// resolveTolerance uses the flag when set and the configured default
// otherwise.
func resolveTolerance(cmd *cobra.Command, flag, configured float64) (float64, error) {
	t := configured
	if cmd.Flags().Changed("tolerance") {
		t = flag
	}
	if err := types.ValidateTolerance(t); err != nil {
		return 0, err
	}
	return t, nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

var (
	closeColor  = color.New(color.FgGreen).SprintFunc()
	mediumColor = color.New(color.FgYellow).SprintFunc()
	farColor    = color.New(color.FgRed).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

func bandColor(b engine.Band) func(a ...interface{}) string {
	switch b {
	case engine.BandClose:
		return closeColor
	case engine.BandMedium:
		return mediumColor
	default:
		return farColor
	}
}

func printResult(out io.Writer, res engine.Result, draft session.Draft) {
	switch res.State {
	case engine.StateEmptyCatalog:
		fmt.Fprintln(out, "the catalog is empty")
		return
	case engine.StateNoMatches:
		fmt.Fprintf(out, "no activity is within %s of every target: innovation zone\n", engine.FormatScore(res.Tolerance))
		fmt.Fprintln(out, "a new activity with these scores would fill the gap:")
		for _, k := range res.Active {
			fmt.Fprintf(out, "  %s=%s\n", k, engine.FormatScore(draft.Scores[k]))
		}
		return
	}

	fmt.Fprintf(out, "%d of %d activities (%s, tolerance %s)\n",
		len(res.Activities), res.Considered, res.State, engine.FormatScore(res.Tolerance))
	for _, a := range res.Activities {
		name := a.Name
		if a.IsCustom {
			name += dimColor(" (custom)")
		}
		fmt.Fprintf(out, "  %s\n", name)
	}
}

func printAnalysis(out io.Writer, a engine.Analysis) {
	fmt.Fprintln(out, a.Activity)
	w := newTable(out)
	if len(a.Filtered) > 0 {
		fmt.Fprintln(w, "DIMENSION\tSCORE\tTARGET\tDELTA")
		for _, row := range a.Filtered {
			paint := bandColor(row.Band)
			fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\n", row.Label, engine.FormatScore(row.Value), editedMark(row.Edited),
				engine.FormatScore(row.Target), paint(engine.FormatScore(row.Delta)))
		}
		_ = w.Flush()
		if a.WithinTolerance {
			fmt.Fprintln(out, closeColor("within tolerance"))
		} else {
			fmt.Fprintln(out, farColor("outside tolerance"))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(w, "OTHER DIMENSIONS\tSCORE")
	for _, row := range a.Other {
		fmt.Fprintf(w, "%s\t%s%s\n", row.Label, engine.FormatScore(row.Value), editedMark(row.Edited))
	}
	_ = w.Flush()
}

func editedMark(edited bool) string {
	if edited {
		return "*"
	}
	return ""
}
