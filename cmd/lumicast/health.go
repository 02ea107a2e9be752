package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

func newHealthCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every registered provider adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			results := app.router.HealthCheckAll(cmd.Context())

			caps := make([]string, 0, len(results))
			for c := range results {
				caps = append(caps, string(c))
			}
			sort.Strings(caps)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CAPABILITY\tPROVIDER\tSTATUS")
			for _, c := range caps {
				byName := results[models.Capability(c)]
				names := make([]string, 0, len(byName))
				for name := range byName {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					status := "healthy"
					if !byName[name] {
						status = "unhealthy"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", c, name, status)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	return cmd
}
