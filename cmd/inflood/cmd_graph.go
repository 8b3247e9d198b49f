package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/inflood/internal/network"
	"github.com/nvandessel/inflood/internal/pipeline"
	"github.com/nvandessel/inflood/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <edges>",
		Short: "Render or serve a base graph",
		Long: `Render an edge list in DOT (Graphviz) or JSON, convert it to CSV or
Arrow, or serve it over HTTP together with on-demand cascades.

Examples:
  inflood graph edges.csv | dot -Tsvg > graph.svg
  inflood graph edges.csv --format arrow > edges.arrow
  inflood graph edges.arrow --input-format arrow --format json
  inflood graph edges.csv --serve --addr localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			inputFormat, _ := cmd.Flags().GetString("input-format")
			serve, _ := cmd.Flags().GetBool("serve")
			addr, _ := cmd.Flags().GetString("addr")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			var g *network.Graph
			switch network.Format(inputFormat) {
			case network.FormatCSV:
				g, err = pipeline.LoadGraph(args[0], cfg.Input, logger)
			case network.FormatArrow:
				g, err = network.ReadFile(args[0], network.FormatArrow)
			default:
				return fmt.Errorf("unsupported input format %q (use 'csv' or 'arrow')", inputFormat)
			}
			if err != nil {
				return err
			}

			if serve {
				ctx, cancel := signalContext(cmd.Context())
				defer cancel()
				srv := visualization.NewServer(g, cfg.Simulation.Diffusion())
				return runGraphServer(ctx, cmd, srv, addr)
			}

			w := cmd.OutOrStdout()
			switch network.Format(format) {
			case network.FormatCSV:
				return network.WriteCSV(w, g, ',')
			case network.FormatArrow:
				return network.WriteArrow(w, g)
			}
			vf, err := visualization.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("unsupported format %q (use 'dot', 'json', 'csv', or 'arrow')", format)
			}
			return visualization.Render(w, g, nil, vf)
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json, csv, or arrow")
	cmd.Flags().String("input-format", "csv", "Input format: csv (delimited edge list) or arrow")
	cmd.Flags().Bool("serve", false, "Serve the graph and on-demand cascades over HTTP")
	cmd.Flags().String("addr", "", "Listen address for --serve (default a free localhost port)")

	return cmd
}

// runGraphServer starts srv and blocks until ctx is cancelled.
func runGraphServer(ctx context.Context, cmd *cobra.Command, srv *visualization.Server, addr string) error {
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx, addr) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	bound := srv.Addr()
	if bound == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + bound
	fmt.Fprintf(cmd.OutOrStdout(), "Graph server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s/graph.json   base graph\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s/api/cascade  run a cascade (?seed=N&days=D&rng=M)\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	// Block until server exits
	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
