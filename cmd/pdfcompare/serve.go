package main

import (
	"github.com/dusk-indust/pdfcompare/internal/mcptools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server exposing compare_pdfs and probe_engine",
		Long: `serve-mcp runs pdfcompare as a Model Context Protocol server. By default it
speaks over stdio; with --http it serves streamable HTTP on the given address.
Logs go to stderr and never interfere with the stdio transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, pipeline, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer pipeline.Close()

			server := mcptools.NewServer(mcptools.NewCompareService(pipeline))
			if addr != "" {
				logger.Info("serving MCP over HTTP", zap.String("addr", addr))
				return mcptools.RunHTTP(cmd.Context(), server, addr)
			}
			return mcptools.RunStdio(cmd.Context(), server)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
