package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatorBudget tracks per-creator spend limits over three independently
// reset rolling periods. Spent counters only ever increase between resets.
type CreatorBudget struct {
	CreatorID string `json:"creator_id"`

	DailyLimit   decimal.Decimal `json:"daily_limit"`
	WeeklyLimit  decimal.Decimal `json:"weekly_limit"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`

	DailySpent   decimal.Decimal `json:"daily_spent"`
	WeeklySpent  decimal.Decimal `json:"weekly_spent"`
	MonthlySpent decimal.Decimal `json:"monthly_spent"`

	AutoApproveThreshold decimal.Decimal `json:"auto_approve_threshold"`
	RequireApprovalAbove decimal.Decimal `json:"require_approval_above"`

	DailyResetAt   time.Time `json:"daily_reset_at"`
	WeeklyResetAt  time.Time `json:"weekly_reset_at"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`

	IsSuspended      bool   `json:"is_suspended"`
	SuspensionReason string `json:"suspension_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
