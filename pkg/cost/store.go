package cost

import (
	"context"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Store persists cost entries, approval requests, and creator budgets.
// Cost entries are an audit trail: they are created and updated, never
// deleted.
type Store interface {
	SaveCostEntry(ctx context.Context, e models.CostEntry) error
	GetCostEntry(ctx context.Context, id string) (*models.CostEntry, error)
	// ListCostEntries returns recent entries, newest first, optionally
	// filtered by creator.
	ListCostEntries(ctx context.Context, creatorID string, limit int) ([]models.CostEntry, error)

	SaveApproval(ctx context.Context, a models.ApprovalRequest) error
	GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error)
	ListPendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error)

	// GetBudget returns (nil, nil) when the creator has no budget yet.
	GetBudget(ctx context.Context, creatorID string) (*models.CreatorBudget, error)
	SaveBudget(ctx context.Context, b models.CreatorBudget) error

	Close() error
}
