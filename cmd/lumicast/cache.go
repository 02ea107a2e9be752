package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the content cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and hit statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cache == nil {
				fmt.Println("Caching is disabled.")
				return nil
			}
			stats, err := app.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}

			total := stats.Hits + stats.Misses
			hitRate := float64(0)
			if total > 0 {
				hitRate = float64(stats.Hits) / float64(total) * 100
			}
			fmt.Printf("Entries:        %d\n", stats.Entries)
			fmt.Printf("Active entries: %d\n", stats.ActiveEntries)
			fmt.Printf("Stored hits:    %d\n", stats.TotalHits)
			fmt.Printf("Hit rate:       %.1f%% (%d hits, %d misses this process)\n", hitRate, stats.Hits, stats.Misses)

			if len(stats.ByType) > 0 {
				types := make([]string, 0, len(stats.ByType))
				for ct := range stats.ByType {
					types = append(types, string(ct))
				}
				sort.Strings(types)
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "\nTYPE\tACTIVE ENTRIES")
				for _, ct := range types {
					fmt.Fprintf(w, "%s\t%d\n", ct, stats.ByType[models.CacheType(ct)])
				}
				return w.Flush()
			}
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cache == nil {
				fmt.Println("Caching is disabled.")
				return nil
			}
			n, err := app.cache.CleanupExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d expired entries.\n", n)
			return nil
		},
	}

	invalidateCmd := &cobra.Command{
		Use:   "invalidate <cache-key>",
		Short: "Invalidate one cache entry by its canonical key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cache == nil {
				fmt.Println("Caching is disabled.")
				return nil
			}
			if err := app.cache.Invalidate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Invalidated.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	cmd.AddCommand(statsCmd, cleanupCmd, invalidateCmd)
	return cmd
}
