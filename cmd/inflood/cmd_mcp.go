package main

import (
	"fmt"

	"github.com/nvandessel/inflood/internal/mcp"
	"github.com/nvandessel/inflood/internal/store"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout, exposing the
inflood_simulate and inflood_runs tools to MCP clients.

Tool defaults come from the configuration. Every tool call is appended to
~/.inflood/audit.jsonl. Logs go to stderr.

Example client configuration:
  {"mcpServers": {"inflood": {"command": "inflood", "args": ["mcp-server"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			auditDir, err := store.GlobalInfloodPath()
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(&mcp.Config{
				Name:     "inflood",
				Version:  version,
				Settings: cfg,
				AuditDir: auditDir,
				Logger:   newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return srv.Run(ctx)
		},
	}
}
