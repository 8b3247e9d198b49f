package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/inflood/internal/config"
	"github.com/nvandessel/inflood/internal/pathutil"
	"github.com/nvandessel/inflood/internal/pipeline"
)

// defaultRunsLimit bounds inflood_runs listings without an explicit limit.
const defaultRunsLimit = 20

// registerTools registers all inflood MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "inflood_simulate",
		Description: "Simulate an influence cascade over a weighted directed graph and summarize it",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "inflood_runs",
		Description: "List archived simulation runs, or show one run in full",
	}, s.handleRuns)
}

// settingsFor overlays the non-zero fields of args on the server settings.
func (s *Server) settingsFor(args SimulateInput) *config.InfloodConfig {
	cfg := *s.settings
	sim := &cfg.Simulation
	if args.Days > 0 {
		sim.Days = args.Days
	}
	if args.Alpha != 0 {
		sim.Alpha = args.Alpha
	}
	if args.P0 != nil {
		sim.P0 = *args.P0
	}
	if args.SeedCount > 0 {
		sim.SeedCount = args.SeedCount
	}
	if args.SeedMinDegree > 0 {
		sim.SeedMinDegree = args.SeedMinDegree
	}
	if args.RNGSeed != 0 {
		sim.RNGSeed = args.RNGSeed
	}
	if args.Delimiter != "" {
		cfg.Input.Delimiter = args.Delimiter
	}
	if args.Reverse {
		cfg.Input.Reverse = true
	}
	if args.Unweighted {
		cfg.Input.Weighted = false
	}
	if args.Format != "" {
		cfg.Output.Format = args.Format
	}

	// The server archives into its own store only on request.
	cfg.Store.Enabled = false
	cfg.Output.TraceDir = ""
	return &cfg
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("inflood_simulate", start, retErr, map[string]string{
			"graph":   args.Graph,
			"seeds":   strconv.Itoa(len(args.Seeds)),
			"archive": strconv.FormatBool(args.Archive),
		})
	}()

	if args.Graph == "" {
		return nil, SimulateOutput{}, errors.New("graph path is required")
	}
	if args.Output != "" {
		dirs := append([]string{filepath.Dir(args.Graph)}, s.outputDirs...)
		if err := pathutil.ValidatePath(args.Output, dirs); err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("invalid output path: %w", err)
		}
	}
	if err := s.limiter.Check("inflood_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	preq := pipeline.Request{
		GraphPath:  args.Graph,
		Config:     s.settingsFor(args),
		Seeds:      args.Seeds,
		OutputPath: args.Output,
		Top:        args.Top,
		Logger:     s.logger,
	}
	if args.Archive {
		preq.Store = s.store
	}

	out, err := pipeline.Run(ctx, preq)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	sum := out.Summary
	msg := fmt.Sprintf("%d of %d nodes infected by %d seeds over %d days (%d propagation events)",
		sum.Infected, out.Graph.NumNodes(), len(sum.Seeds), sum.Days, sum.Events)
	if out.Stored {
		msg += fmt.Sprintf("; archived as %s", out.RunID)
	}

	return nil, SimulateOutput{
		RunID:   out.RunID,
		RNGSeed: out.RNGSeed,
		Summary: sum,
		Output:  out.Output,
		Message: msg,
	}, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("inflood_runs", start, retErr, map[string]string{
			"id": args.ID, "limit": strconv.Itoa(args.Limit),
		})
	}()

	if err := s.limiter.Check("inflood_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	if args.ID != "" {
		run, err := s.store.GetRun(ctx, args.ID)
		if err != nil {
			return nil, RunsOutput{}, err
		}
		return nil, RunsOutput{Run: run, Count: 1}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			GraphPath: r.GraphPath,
			Days:      r.Params.Days,
			P0:        r.Params.P0,
			Seeds:     r.Params.SeedCount,
			Infected:  r.Infected,
			Events:    r.Events,
		})
	}

	return nil, RunsOutput{Runs: items, Count: len(items)}, nil
}
