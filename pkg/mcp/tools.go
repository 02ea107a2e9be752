package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lumicast-ai/lumicast/pkg/cost"
)

// Tool argument structs.

type creatorArgs struct {
	CreatorID string `json:"creator_id"`
}

type approveArgs struct {
	ApprovalID string `json:"approval_id"`
	ApprovedBy string `json:"approved_by"`
	Notes      string `json:"notes"`
}

type rejectArgs struct {
	ApprovalID string `json:"approval_id"`
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"lumicast_budget":            handleBudget,
	"lumicast_pending_approvals": handlePendingApprovals,
	"lumicast_approve":           handleApprove,
	"lumicast_reject":            handleReject,
	"lumicast_cache_stats":       handleCacheStats,
	"lumicast_health":            handleHealth,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "lumicast_budget",
		Description: "Show a creator's spending budget: limits, amounts spent this day/week/month, and approval thresholds.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"creator_id"},
			"properties": map[string]any{
				"creator_id": map[string]any{
					"type":        "string",
					"description": "The creator whose budget to show",
				},
			},
		},
	},
	{
		Name:        "lumicast_pending_approvals",
		Description: "List generation requests awaiting manual cost approval.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "lumicast_approve",
		Description: "Approve a pending generation request by approval ID.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"approval_id", "approved_by"},
			"properties": map[string]any{
				"approval_id": map[string]any{
					"type":        "string",
					"description": "The approval request ID",
				},
				"approved_by": map[string]any{
					"type":        "string",
					"description": "Who is approving",
				},
				"notes": map[string]any{
					"type":        "string",
					"description": "Optional approval notes",
				},
			},
		},
	},
	{
		Name:        "lumicast_reject",
		Description: "Reject a pending generation request by approval ID.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"approval_id", "rejected_by"},
			"properties": map[string]any{
				"approval_id": map[string]any{
					"type":        "string",
					"description": "The approval request ID",
				},
				"rejected_by": map[string]any{
					"type":        "string",
					"description": "Who is rejecting",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Why the request is rejected",
				},
			},
		},
	},
	{
		Name:        "lumicast_cache_stats",
		Description: "Show content cache statistics (entries, hits, misses, hit rate, entries per content type).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "lumicast_health",
		Description: "Probe every registered provider adapter and report per-provider health.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleBudget(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args creatorArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.CreatorID == "" {
		return errorResult("creator_id is required")
	}
	budget, err := s.governor.Budget(ctx, args.CreatorID)
	if err != nil {
		return errorResult("Error fetching budget: " + err.Error())
	}
	return textResult(formatBudget(budget))
}

func handlePendingApprovals(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	pending, err := s.governor.PendingApprovals(ctx)
	if err != nil {
		return errorResult("Error fetching pending approvals: " + err.Error())
	}
	return textResult(formatApprovals(pending))
}

func handleApprove(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args approveArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.ApprovalID == "" || args.ApprovedBy == "" {
		return errorResult("approval_id and approved_by are required")
	}
	if err := s.governor.Approve(ctx, args.ApprovalID, args.ApprovedBy, args.Notes); err != nil {
		if errors.Is(err, cost.ErrApprovalExpired) {
			return errorResult("Approval request has expired.")
		}
		return errorResult("Error approving request: " + err.Error())
	}
	return textResult("Approved " + args.ApprovalID + ".")
}

func handleReject(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args rejectArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.ApprovalID == "" || args.RejectedBy == "" {
		return errorResult("approval_id and rejected_by are required")
	}
	if err := s.governor.Reject(ctx, args.ApprovalID, args.RejectedBy, args.Reason); err != nil {
		if errors.Is(err, cost.ErrApprovalExpired) {
			return errorResult("Approval request has expired.")
		}
		return errorResult("Error rejecting request: " + err.Error())
	}
	return textResult("Rejected " + args.ApprovalID + ".")
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleHealth(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	results := s.router.HealthCheckAll(ctx)
	return textResult(formatHealth(results))
}
