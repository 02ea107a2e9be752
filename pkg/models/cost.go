package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostTier classifies an estimated dollar amount. Band edges are
// inclusive-low, exclusive-high.
type CostTier string

const (
	TierLow      CostTier = "low"      // [0, 1)
	TierMedium   CostTier = "medium"   // [1, 10)
	TierHigh     CostTier = "high"     // [10, 100)
	TierCritical CostTier = "critical" // [100, ∞)
)

// ApprovalStatus is the approval state of a cost entry or approval request.
type ApprovalStatus string

const (
	StatusPending      ApprovalStatus = "pending"
	StatusApproved     ApprovalStatus = "approved"
	StatusRejected     ApprovalStatus = "rejected"
	StatusAutoApproved ApprovalStatus = "auto_approved"
	StatusExpired      ApprovalStatus = "expired"
)

// CostEntry is the audit record for one estimated generation. Entries are
// never deleted.
type CostEntry struct {
	ID            string              `json:"id"`
	Service       string              `json:"service"`
	Model         string              `json:"model,omitempty"`
	Operation     string              `json:"operation"`
	EstimatedCost decimal.Decimal     `json:"estimated_cost"`
	ActualCost    decimal.NullDecimal `json:"actual_cost,omitempty"`
	CostTier      CostTier            `json:"cost_tier"`
	Params        Params              `json:"params"`
	CreatorID     string              `json:"creator_id"`

	Status           ApprovalStatus `json:"status"`
	RequiresApproval bool           `json:"requires_approval"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
	ApprovedAt       time.Time      `json:"approved_at,omitempty"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`

	Usage       UsageMetrics `json:"usage,omitempty"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`

	CacheHit bool   `json:"cache_hit"`
	CacheKey string `json:"cache_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UsageMetrics records what a completed operation actually consumed.
type UsageMetrics struct {
	TokensUsed          int `json:"tokens_used,omitempty"`
	CharactersProcessed int `json:"characters_processed,omitempty"`
	DurationSeconds     int `json:"duration_seconds,omitempty"`
	ImageCount          int `json:"image_count,omitempty"`
	VideoSeconds        int `json:"video_seconds,omitempty"`
}

// ApprovalRequest asks a human to approve a pending cost entry. It reaches
// exactly one terminal state: approved, rejected, or expired.
type ApprovalRequest struct {
	ID          string          `json:"id"`
	CostEntryID string          `json:"cost_entry_id"`
	CreatorID   string          `json:"creator_id"`
	Description string          `json:"description"`
	Estimated   decimal.Decimal `json:"estimated_cost"`
	CostTier    CostTier        `json:"cost_tier"`

	Status          ApprovalStatus `json:"status"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovalMethod  string         `json:"approval_method,omitempty"` // manual, auto, budget_check
	ApprovalNotes   string         `json:"approval_notes,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`

	ExpiresAt  time.Time `json:"expires_at"`
	ApprovedAt time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// BudgetCheck is the result of checking an estimate against a creator budget.
type BudgetCheck struct {
	WithinLimits     bool            `json:"within_limits"`
	DailyRemaining   decimal.Decimal `json:"daily_remaining"`
	WeeklyRemaining  decimal.Decimal `json:"weekly_remaining"`
	MonthlyRemaining decimal.Decimal `json:"monthly_remaining"`
	AutoApprove      bool            `json:"auto_approve"`
	RequiresApproval bool            `json:"requires_approval"`
	Suspended        bool            `json:"suspended"`
	Reason           string          `json:"reason,omitempty"`
}
