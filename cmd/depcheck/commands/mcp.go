package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depcheck/pkg/mcp"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes depcheck as a tool that AI agents can discover and invoke:
  - depcheck_check: dependency consistency check of a Python repository`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg := global.observabilityConfig(observability.ModeMCP, "", cobraCmd.ErrOrStderr())
			cfg.LogJSON = true

			providers, err := observability.Init(cfg)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, redErr := observability.NewREDMetrics(providers.Meter)
			if redErr != nil {
				return redErr
			}

			checks, checkErr := observability.NewCheckMetrics(providers.Meter)
			if checkErr != nil {
				return checkErr
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:       providers.Logger,
				Metrics:      red,
				CheckMetrics: checks,
				Tracer:       providers.Tracer,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	return cmd
}
