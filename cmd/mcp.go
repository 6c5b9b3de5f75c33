package cmd

import (
	"github.com/KaramelBytes/csvdash/internal/mcptools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server on stdio exposing profile, suggest and query tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs stay on stderr at warn.
		svc, cleanup, err := newServices(serviceOptions{Quiet: true, History: true})
		if err != nil {
			return err
		}
		defer cleanup()
		return server.ServeStdio(mcptools.NewServer(version, svc))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
