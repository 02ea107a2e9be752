package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show creator spending budgets",
	}

	var creator string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits for a creator",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			b, err := app.governor.Budget(cmd.Context(), creator)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tLIMIT\tSPENT\tREMAINING\tRESETS")
			fmt.Fprintf(w, "daily\t$%s\t$%s\t$%s\t%s\n",
				b.DailyLimit.StringFixed(2), b.DailySpent.StringFixed(2),
				b.DailyLimit.Sub(b.DailySpent).StringFixed(2),
				b.DailyResetAt.Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "weekly\t$%s\t$%s\t$%s\t%s\n",
				b.WeeklyLimit.StringFixed(2), b.WeeklySpent.StringFixed(2),
				b.WeeklyLimit.Sub(b.WeeklySpent).StringFixed(2),
				b.WeeklyResetAt.Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "monthly\t$%s\t$%s\t$%s\t%s\n",
				b.MonthlyLimit.StringFixed(2), b.MonthlySpent.StringFixed(2),
				b.MonthlyLimit.Sub(b.MonthlySpent).StringFixed(2),
				b.MonthlyResetAt.Format("2006-01-02 15:04"))
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nAuto-approve up to:      $%s\n", b.AutoApproveThreshold.StringFixed(2))
			fmt.Printf("Approval required above: $%s\n", b.RequireApprovalAbove.StringFixed(2))
			if b.IsSuspended {
				fmt.Printf("SUSPENDED: %s\n", b.SuspensionReason)
			}
			return nil
		},
	}
	statusCmd.Flags().StringVar(&creator, "creator", "default", "creator id")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
