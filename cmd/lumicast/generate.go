package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumicast-ai/lumicast/pkg/models"
	"github.com/lumicast-ai/lumicast/pkg/pipeline"
)

func newGenerateCmd() *cobra.Command {
	var (
		configPath string
		capability string
		tier       string
		creator    string
		prompt     string
		paramsJSON string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation request through the governance pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := models.Params{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parse --params: %w", err)
				}
			}
			if prompt != "" {
				params["prompt"] = prompt
			}

			req := models.GenerationRequest{
				Capability: models.Capability(capability),
				Tier:       models.ProviderTier(tier),
				Params:     params,
				CreatorID:  creator,
			}
			if !req.Capability.Valid() {
				return fmt.Errorf("unknown capability %q (one of: %s)", capability, capabilityList())
			}

			app, err := openApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			outcome, err := app.pipeline.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printOutcome(outcome)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lumicast.yaml", "path to config file")
	cmd.Flags().StringVar(&capability, "capability", "text", "capability to generate ("+capabilityList()+")")
	cmd.Flags().StringVar(&tier, "tier", "premium", "provider tier (premium, standard, budget)")
	cmd.Flags().StringVar(&creator, "creator", "default", "creator id the cost is attributed to")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt shorthand, merged into params")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "generation parameters as a JSON object")
	return cmd
}

func printOutcome(o *pipeline.Outcome) error {
	fmt.Printf("Status:     %s\n", o.Status)
	switch o.Status {
	case pipeline.StatusRejected:
		fmt.Printf("Reason:     %s\n", o.Reason)
		fmt.Printf("Estimated:  $%s\n", o.EstimatedCost.StringFixed(4))
		fmt.Printf("Remaining:  daily $%s, weekly $%s, monthly $%s\n",
			o.Budget.DailyRemaining.StringFixed(2),
			o.Budget.WeeklyRemaining.StringFixed(2),
			o.Budget.MonthlyRemaining.StringFixed(2))
		return nil
	case pipeline.StatusPendingApproval:
		fmt.Printf("Estimated:  $%s\n", o.EstimatedCost.StringFixed(4))
		fmt.Printf("Approval:   %s\n", o.ApprovalRequestID)
		fmt.Println("Approve with: lumicast costs approve " + o.ApprovalRequestID)
		return nil
	}

	if o.CacheHit {
		fmt.Printf("Cache:      hit (%s)\n", o.CacheKey)
	} else {
		fmt.Printf("Service:    %s", o.ServiceUsed)
		if o.Model != "" {
			fmt.Printf(" (%s)", o.Model)
		}
		if o.FallbackUsed {
			fmt.Print(" [fallback]")
		}
		fmt.Println()
		fmt.Printf("Estimated:  $%s\n", o.EstimatedCost.StringFixed(4))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(o.Payload)
}

func capabilityList() string {
	names := make([]string, len(models.Capabilities))
	for i, c := range models.Capabilities {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
