// Package pipeline runs one simulation end to end: load the base graph,
// simulate, summarize, then write, archive and observe the result.
// The CLI and the MCP server share it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nvandessel/inflood/internal/config"
	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/logging"
	"github.com/nvandessel/inflood/internal/metrics"
	"github.com/nvandessel/inflood/internal/network"
	"github.com/nvandessel/inflood/internal/report"
	"github.com/nvandessel/inflood/internal/store"
	"github.com/nvandessel/inflood/internal/visualization"
)

// Request describes one simulation.
type Request struct {
	// GraphPath is the base edge list.
	GraphPath string

	// Config holds the parameters. Nil means config.Default().
	Config *config.InfloodConfig

	// Seeds replaces random seeding when non-empty.
	Seeds []int64

	// OutputPath receives the collapsed influence graph in
	// Config.Output.Format. Empty writes nothing.
	OutputPath string

	// Top bounds the influencers listed in the summary. 0 means
	// report.DefaultTop.
	Top int

	// Store archives the run when set. When nil and Config.Store.Enabled,
	// the SQLite store at Config.Store.Path is opened for the run.
	Store store.RunStore

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger
}

// Outcome is everything one simulation produced.
type Outcome struct {
	RunID     string             `json:"run_id,omitempty"`
	RNGSeed   uint64             `json:"rng_seed"`
	Config    diffusion.Config   `json:"config"`
	Summary   report.Summary     `json:"summary"`
	Duration  time.Duration      `json:"duration_ns"`
	Output    string             `json:"output,omitempty"`
	Stored    bool               `json:"stored"`
	Graph     *network.Graph     `json:"-"`
	Result    *diffusion.Result  `json:"-"`
	Influence *network.Graph     `json:"-"`
	Run       *store.Run         `json:"-"`
	Metrics   *metrics.Collector `json:"-"`
}

// Run executes req.
func Run(ctx context.Context, req Request) (*Outcome, error) {
	cfg := req.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	g, err := LoadGraph(req.GraphPath, cfg.Input, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("graph loaded",
		"path", req.GraphPath,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"total_weight", g.TotalWeight())

	rngSeed := cfg.Simulation.RNGSeed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
		logger.Debug("derived rng seed from clock", "rng_seed", rngSeed)
	}

	var events *logging.EventLogger
	if cfg.Output.TraceDir != "" {
		events = logging.NewEventLogger(cfg.Output.TraceDir, cfg.Logging.Level)
		defer events.Close()
	}

	dcfg := cfg.Simulation.Diffusion()
	engine := diffusion.NewEngine(g, dcfg,
		diffusion.WithSource(diffusion.NewSource(rngSeed)),
		diffusion.WithLogger(logger),
		diffusion.WithEventLogger(events))

	start := time.Now()
	var res *diffusion.Result
	if len(req.Seeds) > 0 {
		res, err = engine.RunFrom(ctx, req.Seeds)
	} else {
		res, err = engine.Run(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	duration := time.Since(start)

	influence, err := res.Influence.Collapse()
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	top := req.Top
	if top <= 0 {
		top = report.DefaultTop
	}
	out := &Outcome{
		RNGSeed:   rngSeed,
		Graph:     g,
		Result:    res,
		Influence: influence,
		Summary:   report.Summarize(res, top),
		Duration:  duration,
		Config:    dcfg,
	}

	if req.OutputPath != "" {
		if err := WriteFile(req.OutputPath, out, cfg.Output.Format); err != nil {
			return nil, err
		}
		out.Output = req.OutputPath
		logger.Info("influence graph written", "path", req.OutputPath, "format", cfg.Output.Format)
	}

	if err := archive(ctx, req, cfg, out, logger); err != nil {
		return nil, err
	}

	if cfg.Metrics.Textfile != "" {
		out.Metrics = metrics.NewCollector()
		out.Metrics.ObserveRun(res, duration)
		if err := out.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return nil, err
		}
		logger.Debug("metrics written", "path", cfg.Metrics.Textfile)
	}

	return out, nil
}

// LoadGraph reads the base edge list at path.
func LoadGraph(path string, in config.InputConfig, logger *slog.Logger) (*network.Graph, error) {
	delim, err := network.ParseDelimiter(in.Delimiter)
	if err != nil {
		return nil, err
	}
	g, err := network.LoadFile(path, network.LoadOptions{
		Delimiter: delim,
		Reverse:   in.Reverse,
		Weighted:  in.Weighted,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return g, nil
}

// archive saves the run into req.Store, or into the configured SQLite
// store when archiving is enabled.
func archive(ctx context.Context, req Request, cfg *config.InfloodConfig, out *Outcome, logger *slog.Logger) error {
	s := req.Store
	if s == nil {
		if !cfg.Store.Enabled {
			return nil
		}
		path := cfg.Store.Path
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		sqlStore, err := store.NewSQLiteRunStore(path)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer sqlStore.Close()
		s = sqlStore
	}

	run, err := store.NewRun(req.GraphPath, out.Graph, out.Result, out.RNGSeed, out.Duration)
	if err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	out.RunID = run.ID
	out.Run = run
	out.Stored = true
	logger.Info("run archived", "id", run.ID)
	return nil
}

// Write encodes the collapsed influence graph of out to w. csv and arrow
// are loadable edge lists; dot and json carry infection annotations.
func Write(w io.Writer, out *Outcome, format string) error {
	switch format {
	case string(network.FormatCSV), "":
		return network.WriteCSV(w, out.Influence, ',')
	case string(network.FormatArrow):
		return network.WriteArrow(w, out.Influence)
	default:
		vf, err := visualization.ParseFormat(format)
		if err != nil {
			return err
		}
		return visualization.Render(w, out.Influence, visualization.AnnotationsFrom(out.Result), vf)
	}
}

// WriteFile is Write to a new file at path.
func WriteFile(path string, out *Outcome, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, out, format); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteRun is Write for an archived run.
func WriteRun(w io.Writer, run *store.Run, format string) error {
	g, err := run.InfluenceGraph()
	if err != nil {
		return fmt.Errorf("rebuilding influence graph of run %s: %w", run.ID, err)
	}
	switch format {
	case string(network.FormatCSV), "":
		return network.WriteCSV(w, g, ',')
	case string(network.FormatArrow):
		return network.WriteArrow(w, g)
	default:
		vf, err := visualization.ParseFormat(format)
		if err != nil {
			return err
		}
		return visualization.Render(w, g, runAnnotations(run), vf)
	}
}

func runAnnotations(run *store.Run) *visualization.Annotations {
	ann := &visualization.Annotations{
		Seeds:      make(map[int64]bool, len(run.Seeds)),
		InfectedAt: make(map[int64]int, len(run.Infections)),
	}
	for _, s := range run.Seeds {
		ann.Seeds[s] = true
	}
	for _, in := range run.Infections {
		ann.InfectedAt[in.Node] = in.InfectedAt
	}
	return ann
}
