package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	costsqlite "github.com/lumicast-ai/lumicast/pkg/cost/sqlite"
)

func newCostsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Inspect cost entries and manage approval requests",
	}

	var creator string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent cost entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := costsqlite.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.ListCostEntries(cmd.Context(), creator, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No cost entries found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tCREATOR\tSERVICE\tOPERATION\tESTIMATED\tACTUAL\tTIER\tSTATUS\tCACHE")
			for _, e := range entries {
				actual := "-"
				if e.ActualCost.Valid {
					actual = "$" + e.ActualCost.Decimal.StringFixed(4)
				}
				cacheMark := ""
				if e.CacheHit {
					cacheMark = "hit"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.CreatorID, e.Service,
					e.Operation, e.EstimatedCost.StringFixed(4), actual, e.CostTier,
					e.Status, cacheMark)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&creator, "creator", "", "filter by creator id")
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List approval requests awaiting a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			pending, err := app.governor.PendingApprovals(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("No pending approval requests.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATOR\tESTIMATED\tTIER\tEXPIRES\tDESCRIPTION")
			for _, a := range pending {
				fmt.Fprintf(w, "%s\t%s\t$%s\t%s\t%s\t%s\n",
					a.ID, a.CreatorID, a.Estimated.StringFixed(4), a.CostTier,
					a.ExpiresAt.Format("2006-01-02 15:04:05"), a.Description)
			}
			return w.Flush()
		},
	}

	var approvedBy, notes string
	approveCmd := &cobra.Command{
		Use:   "approve <approval-id>",
		Short: "Approve a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.governor.Approve(cmd.Context(), args[0], approvedBy, notes); err != nil {
				return err
			}
			fmt.Println("Approved.")
			return nil
		},
	}
	approveCmd.Flags().StringVar(&approvedBy, "by", "cli", "who is approving")
	approveCmd.Flags().StringVar(&notes, "notes", "", "approval notes")

	var rejectedBy, reason string
	rejectCmd := &cobra.Command{
		Use:   "reject <approval-id>",
		Short: "Reject a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.governor.Reject(cmd.Context(), args[0], rejectedBy, reason); err != nil {
				return err
			}
			fmt.Println("Rejected.")
			return nil
		},
	}
	rejectCmd.Flags().StringVar(&rejectedBy, "by", "cli", "who is rejecting")
	rejectCmd.Flags().StringVar(&reason, "reason", "", "rejection reason")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	cmd.AddCommand(listCmd, pendingCmd, approveCmd, rejectCmd)
	return cmd
}
