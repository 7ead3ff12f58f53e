package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/olegrjumin/checkurl/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries protocol frames.
		a, err := newApp(cmd.Context(), cfg, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("Starting MCP stdio server", "version", Version)
		return mcpserver.RunStdio(cmd.Context(), mcpserver.New(a.service, a.logger, Version))
	},
}
