package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lumicast-ai/lumicast/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve budget, approval, and cache tooling over stdio MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			var statter mcp.CacheStatter
			if app.cache != nil {
				statter = app.cache
			}
			srv := mcp.New(app.governor, statter, app.router, version)
			return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	return cmd
}
