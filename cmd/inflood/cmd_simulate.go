package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/inflood/internal/config"
	"github.com/nvandessel/inflood/internal/pipeline"
	"github.com/nvandessel/inflood/internal/report"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <edges>",
		Short: "Simulate an influence cascade over an edge list",
		Long: `Simulate an influence cascade over the weighted directed graph read from
an edge list and print a summary of it.

Seeds are drawn at random among nodes with at least --seed-min-degree
outgoing neighbors, unless --seeds lists them. Each day every node infected
before that day repeatedly propagates to a weighted-random neighbor while a
Bernoulli test with probability p0 * elapsed^-alpha passes.

Examples:
  inflood simulate edges.csv
  inflood simulate edges.tsv --delimiter tab --days 30 --rng-seed 42
  inflood simulate edges.csv --p0 -1 -o influence.arrow --format arrow
  inflood simulate edges.csv --seeds 4,8,15 --store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applySimulateFlags(cmd, cfg)

			seeds, _ := cmd.Flags().GetInt64Slice("seeds")
			output, _ := cmd.Flags().GetString("output")
			top, _ := cmd.Flags().GetInt("top")

			req := pipeline.Request{
				GraphPath:  args[0],
				Config:     cfg,
				Seeds:      seeds,
				OutputPath: output,
				Top:        top,
				Logger:     newLogger(cmd, cfg),
			}
			toStdout := output == "-"
			if toStdout {
				req.OutputPath = ""
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out, err := pipeline.Run(ctx, req)
			if err != nil {
				return err
			}

			// With the graph on stdout the report goes to stderr.
			w := cmd.OutOrStdout()
			if toStdout {
				if err := pipeline.Write(w, out, cfg.Output.Format); err != nil {
					return fmt.Errorf("writing influence graph: %w", err)
				}
				w = cmd.ErrOrStderr()
			}

			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printOutcome(w, out)
		},
	}

	cmd.Flags().Int("days", 0, "Number of simulated days (default from config, 100)")
	cmd.Flags().Float64("alpha", 0, "Decay exponent of the propagation probability (default 1.17)")
	cmd.Flags().Float64("p0", 0, "Initial propagation probability; negative derives it from out-weight (default 0.93)")
	cmd.Flags().Int("seed-count", 0, "Number of random seeds (default 5)")
	cmd.Flags().Int("seed-min-degree", 0, "Minimum out-degree of a random seed (default 5)")
	cmd.Flags().Int64Slice("seeds", nil, "Explicit seed nodes, replacing random seeding")
	cmd.Flags().Uint64("rng-seed", 0, "Seed of the random source (0 derives one from the clock)")
	cmd.Flags().String("delimiter", "", "Edge list delimiter: a character or comma, tab, space, semicolon, pipe")
	cmd.Flags().Bool("reverse", false, "Swap the direction of every edge")
	cmd.Flags().Bool("unweighted", false, "Treat every row as weight 1")
	cmd.Flags().StringP("output", "o", "", "Write the influence graph to this file ('-' for stdout)")
	cmd.Flags().String("format", "", "Influence graph format: csv, arrow, dot, or json (default csv)")
	cmd.Flags().Bool("store", false, "Archive the run in the run store")
	cmd.Flags().String("store-path", "", "Run store database (default ~/.inflood/runs.db)")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().String("trace-dir", "", "Write the cascade trace (debug/trace log levels) to this directory")
	cmd.Flags().Int("top", report.DefaultTop, "Number of top influencers to report")

	return cmd
}

// applySimulateFlags overrides cfg with every flag set on the command line.
func applySimulateFlags(cmd *cobra.Command, cfg *config.InfloodConfig) {
	flags := cmd.Flags()
	sim := &cfg.Simulation

	if flags.Changed("days") {
		sim.Days, _ = flags.GetInt("days")
	}
	if flags.Changed("alpha") {
		sim.Alpha, _ = flags.GetFloat64("alpha")
	}
	if flags.Changed("p0") {
		sim.P0, _ = flags.GetFloat64("p0")
	}
	if flags.Changed("seed-count") {
		sim.SeedCount, _ = flags.GetInt("seed-count")
	}
	if flags.Changed("seed-min-degree") {
		sim.SeedMinDegree, _ = flags.GetInt("seed-min-degree")
	}
	if flags.Changed("rng-seed") {
		sim.RNGSeed, _ = flags.GetUint64("rng-seed")
	}
	if flags.Changed("delimiter") {
		cfg.Input.Delimiter, _ = flags.GetString("delimiter")
	}
	if flags.Changed("reverse") {
		cfg.Input.Reverse, _ = flags.GetBool("reverse")
	}
	if flags.Changed("unweighted") {
		unweighted, _ := flags.GetBool("unweighted")
		cfg.Input.Weighted = !unweighted
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("trace-dir") {
		cfg.Output.TraceDir, _ = flags.GetString("trace-dir")
	}
	if flags.Changed("store") {
		cfg.Store.Enabled, _ = flags.GetBool("store")
	}
	if flags.Changed("store-path") {
		cfg.Store.Path, _ = flags.GetString("store-path")
		cfg.Store.Enabled = true
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-file")
	}
}

// printOutcome writes the human-readable result of a simulation.
func printOutcome(w io.Writer, out *pipeline.Outcome) error {
	fmt.Fprintf(w, "Graph:     %d nodes, %d edges\n", out.Graph.NumNodes(), out.Graph.NumEdges())
	fmt.Fprintf(w, "RNG seed:  %d\n", out.RNGSeed)
	if out.Output != "" {
		fmt.Fprintf(w, "Output:    %s\n", out.Output)
	}
	if out.Stored {
		fmt.Fprintf(w, "Run ID:    %s\n", out.RunID)
	}
	fmt.Fprintln(w)
	return report.WriteText(w, out.Summary)
}
