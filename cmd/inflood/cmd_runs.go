package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nvandessel/inflood/internal/pipeline"
	"github.com/nvandessel/inflood/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived simulation runs",
		Long: `List, show, export, import, back up and delete runs archived with
'inflood simulate --store'.

The archive is the SQLite database at store.path (default ~/.inflood/runs.db).

Examples:
  inflood runs list --limit 5
  inflood runs show 0b9c...
  inflood runs export > runs.jsonl
  inflood runs export 0b9c... --format dot | dot -Tsvg > cascade.svg
  inflood runs import runs.jsonl
  inflood runs backup --keep 5`,
	}

	cmd.PersistentFlags().String("store-path", "", "Run store database (default ~/.inflood/runs.db)")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
		newRunsBackupCmd(),
		newRunsBackupsCmd(),
		newRunsVerifyCmd(),
		newRunsRestoreCmd(),
	)

	return cmd
}

// openRunStore opens the SQLite run store named by --store-path or the
// configuration.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	path, _ := cmd.Flags().GetString("store-path")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
	}
	return openRunStoreAt(path)
}

func openRunStoreAt(path string) (*store.SQLiteRunStore, error) {
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return s, nil
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tDAYS\tSEEDS\tINFECTED\tEVENTS\tGRAPH")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.Params.Days, r.Params.SeedCount, r.Infected, r.Events, r.GraphPath)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			w := cmd.OutOrStdout()
			p := run.Params
			fmt.Fprintf(w, "Run %s\n", run.ID)
			fmt.Fprintf(w, "  Created:     %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "  Graph:       %s (%d nodes, %d edges)\n", run.GraphPath, run.GraphNodes, run.GraphEdges)
			fmt.Fprintf(w, "  Parameters:  days=%d alpha=%g p0=%g seed_min_degree=%d rng_seed=%d\n",
				p.Days, p.Alpha, p.P0, p.SeedMinDegree, p.RNGSeed)
			fmt.Fprintf(w, "  Seeds:       %v\n", run.Seeds)
			fmt.Fprintf(w, "  Infected:    %d\n", run.Infected)
			fmt.Fprintf(w, "  Events:      %d (%d distinct edges)\n", run.Events, run.DistinctEdges)
			if run.RoundingFallbacks > 0 || run.CappedLoops > 0 {
				fmt.Fprintf(w, "  Warnings:    %d rounding fallbacks, %d capped attempt loops\n",
					run.RoundingFallbacks, run.CappedLoops)
			}
			fmt.Fprintf(w, "  Duration:    %dms\n", run.DurationMS)
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Export archived runs",
		Long: `Export runs as JSON Lines, one full run per line, oldest first.
Without IDs every run is exported.

With --format csv, arrow, dot or json, the influence graph of a single run
is written instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if format == "jsonl" {
				n, err := store.ExportJSONL(cmd.Context(), s, w, args...)
				if err != nil {
					return err
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", n, output)
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("--format %s exports exactly one run, got %d IDs", format, len(args))
			}
			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return pipeline.WriteRun(w, run, format)
		},
	}

	cmd.Flags().String("format", "jsonl", "Export format: jsonl (runs), or csv, arrow, dot, json (one influence graph)")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newRunsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs from a JSON Lines export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := store.ImportJSONL(cmd.Context(), s, f)
			if err != nil {
				return fmt.Errorf("imported %d runs before failing: %w", n, err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":   "imported",
					"imported": n,
					"path":     s.Path(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs into %s\n", n, s.Path())
			return nil
		},
	}
}

