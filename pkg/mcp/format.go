package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// formatBudget formats a creator budget as text.
func formatBudget(b *models.CreatorBudget) string {
	var v strings.Builder
	fmt.Fprintf(&v, "Budget for %s\n", b.CreatorID)
	fmt.Fprintf(&v, "%-8s %12s %12s %12s\n", "Period", "Limit", "Spent", "Remaining")
	v.WriteString(strings.Repeat("-", 48) + "\n")
	fmt.Fprintf(&v, "%-8s %12s %12s %12s\n", "Daily",
		b.DailyLimit.StringFixed(2), b.DailySpent.StringFixed(2), b.DailyLimit.Sub(b.DailySpent).StringFixed(2))
	fmt.Fprintf(&v, "%-8s %12s %12s %12s\n", "Weekly",
		b.WeeklyLimit.StringFixed(2), b.WeeklySpent.StringFixed(2), b.WeeklyLimit.Sub(b.WeeklySpent).StringFixed(2))
	fmt.Fprintf(&v, "%-8s %12s %12s %12s\n", "Monthly",
		b.MonthlyLimit.StringFixed(2), b.MonthlySpent.StringFixed(2), b.MonthlyLimit.Sub(b.MonthlySpent).StringFixed(2))
	fmt.Fprintf(&v, "\nAuto-approve up to:      $%s\n", b.AutoApproveThreshold.StringFixed(2))
	fmt.Fprintf(&v, "Approval required above: $%s\n", b.RequireApprovalAbove.StringFixed(2))
	if b.IsSuspended {
		fmt.Fprintf(&v, "SUSPENDED: %s\n", b.SuspensionReason)
	}
	return v.String()
}

// formatApprovals formats pending approval requests as a text table.
func formatApprovals(approvals []models.ApprovalRequest) string {
	if len(approvals) == 0 {
		return "No pending approval requests."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-16s %10s %-8s %-20s %s\n",
		"Approval ID", "Creator", "Estimated", "Tier", "Expires", "Description")
	b.WriteString(strings.Repeat("-", 120) + "\n")
	for _, a := range approvals {
		fmt.Fprintf(&b, "%-38s %-16s %10s %-8s %-20s %s\n",
			a.ID, a.CreatorID, "$"+a.Estimated.StringFixed(4), a.CostTier,
			a.ExpiresAt.Format("2006-01-02 15:04:05"), a.Description)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Cache Statistics\n")
	fmt.Fprintf(&b, "  Entries:        %d\n", stats.Entries)
	fmt.Fprintf(&b, "  Active Entries: %d\n", stats.ActiveEntries)
	fmt.Fprintf(&b, "  Hits:           %d\n", stats.Hits)
	fmt.Fprintf(&b, "  Misses:         %d\n", stats.Misses)
	fmt.Fprintf(&b, "  Hit Rate:       %.1f%%\n", hitRate)
	if len(stats.ByType) > 0 {
		types := make([]models.CacheType, 0, len(stats.ByType))
		for ct := range stats.ByType {
			types = append(types, ct)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		b.WriteString("  By Type:\n")
		for _, ct := range types {
			fmt.Fprintf(&b, "    %-18s %d\n", ct, stats.ByType[ct])
		}
	}
	return b.String()
}

// formatHealth formats provider health results as a text table.
func formatHealth(results map[models.Capability]map[string]bool) string {
	if len(results) == 0 {
		return "No providers registered."
	}
	caps := make([]models.Capability, 0, len(results))
	for c := range results {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-20s %s\n", "Capability", "Provider", "Status")
	b.WriteString(strings.Repeat("-", 44) + "\n")
	for _, c := range caps {
		providers := make([]string, 0, len(results[c]))
		for name := range results[c] {
			providers = append(providers, name)
		}
		sort.Strings(providers)
		for _, name := range providers {
			status := "healthy"
			if !results[c][name] {
				status = "unhealthy"
			}
			fmt.Fprintf(&b, "%-12s %-20s %s\n", c, name, status)
		}
	}
	return b.String()
}
