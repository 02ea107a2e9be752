package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumicast-ai/lumicast/pkg/genlog"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		creator    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gl, err := genlog.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = gl.Close() }()

			entries, err := gl.Recent(cmd.Context(), creator, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No generations logged.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tCREATOR\tCAPABILITY\tTIER\tSERVICE\tLATENCY\tCACHE\tFALLBACK")
			for _, e := range entries {
				cacheMark, fallbackMark := "", ""
				if e.CacheHit {
					cacheMark = "hit"
				}
				if e.FallbackUsed {
					fallbackMark = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.CreatorID,
					e.Capability, e.Tier, e.Service, e.LatencyMs, cacheMark, fallbackMark)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	cmd.Flags().StringVar(&creator, "creator", "", "filter by creator id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}
