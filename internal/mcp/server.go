// Package mcp provides an MCP (Model Context Protocol) server for inflood.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/inflood/internal/config"
	"github.com/nvandessel/inflood/internal/logging"
	"github.com/nvandessel/inflood/internal/pathutil"
	"github.com/nvandessel/inflood/internal/ratelimit"
	"github.com/nvandessel/inflood/internal/store"
)

// Server wraps the MCP SDK server and provides inflood-specific functionality.
type Server struct {
	server     *sdk.Server
	store      store.RunStore
	ownsStore  bool
	settings   *config.InfloodConfig
	logger     *slog.Logger
	audit      *AuditLogger
	limiter    *ratelimit.Limiter
	outputDirs []string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "inflood")
	Version string // Server version

	// Settings supplies defaults for tool parameters. Nil means
	// config.Default().
	Settings *config.InfloodConfig

	// Store archives runs. Nil opens the SQLite store at
	// Settings.Store.Path, or ~/.inflood/runs.db.
	Store store.RunStore

	// AuditDir receives audit.jsonl. Empty disables the audit log.
	AuditDir string

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger

	// Limits throttle tool calls. Nil means ratelimit.DefaultLimits.
	Limits map[string]ratelimit.Limit

	// OutputDirs are where inflood_simulate may write influence graphs,
	// besides the directory of the input graph. Nil means
	// ~/.inflood/outputs.
	OutputDirs []string
}

// NewServer creates a new MCP server with inflood tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	runStore := cfg.Store
	ownsStore := false
	if runStore == nil {
		path := settings.Store.Path
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		s, err := store.NewSQLiteRunStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create run store: %w", err)
		}
		runStore = s
		ownsStore = true
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:     mcpServer,
		store:      runStore,
		ownsStore:  ownsStore,
		settings:   settings,
		logger:     logger,
		limiter:    ratelimit.New(cfg.Limits),
		outputDirs: cfg.OutputDirs,
	}
	if s.outputDirs == nil {
		dirs, err := pathutil.DefaultOutputDirs()
		if err != nil {
			return nil, err
		}
		s.outputDirs = dirs
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.audit.Close()
	if s.ownsStore {
		s.ownsStore = false
		return s.store.Close()
	}
	return nil
}
