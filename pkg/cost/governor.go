// Package cost estimates the monetary cost of prospective generations,
// gates them against per-creator rolling budgets, and runs the approval
// state machine. Budget outcomes are result states, never errors: callers
// branch on status because insufficient budget is an expected, frequent
// outcome.
package cost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

// approvalTTL is the hard expiry of an approval request, fixed from its
// creation time.
const approvalTTL = 24 * time.Hour

var (
	ErrApprovalNotFound = errors.New("approval request not found")
	ErrApprovalExpired  = errors.New("approval request expired")
	ErrNotPending       = errors.New("approval request is not pending")
	ErrEntryNotFound    = errors.New("cost entry not found")
)

var (
	mediumFloor   = decimal.NewFromInt(1)
	highFloor     = decimal.NewFromInt(10)
	criticalFloor = decimal.NewFromInt(100)
)

// Classify maps a USD amount onto its cost tier. Bands are inclusive-low,
// exclusive-high, so a cost exactly at a boundary belongs to the higher band.
func Classify(cost decimal.Decimal) models.CostTier {
	switch {
	case cost.LessThan(mediumFloor):
		return models.TierLow
	case cost.LessThan(highFloor):
		return models.TierMedium
	case cost.LessThan(criticalFloor):
		return models.TierHigh
	default:
		return models.TierCritical
	}
}

// NotifyFunc receives a newly created approval request. A failing callback
// is logged and never aborts the approval flow.
type NotifyFunc func(models.ApprovalRequest) error

// Decision is the outcome of requesting approval for one operation.
type Decision struct {
	Entry    models.CostEntry
	Approval *models.ApprovalRequest // non-nil only when Entry is pending
	Budget   models.BudgetCheck
}

// Governor is the cost estimation, budget enforcement, and approval engine.
type Governor struct {
	store    Store
	rates    Rates
	defaults config.BudgetDefaults

	locks sync.Map // creator id -> *sync.Mutex

	mu        sync.Mutex
	notifiers map[string]NotifyFunc
}

// New creates a Governor.
func New(store Store, rates Rates, defaults config.BudgetDefaults) *Governor {
	return &Governor{
		store:     store,
		rates:     rates,
		defaults:  defaults,
		notifiers: make(map[string]NotifyFunc),
	}
}

// RegisterNotifier registers a callback invoked with every approval request
// created.
func (g *Governor) RegisterNotifier(name string, fn NotifyFunc) {
	g.mu.Lock()
	g.notifiers[name] = fn
	g.mu.Unlock()
}

// Estimate returns the estimated USD cost of an operation. An unknown
// service/model pair yields the conservative fallback estimate so that
// estimation gaps never block legitimate work; the gap is logged.
func (g *Governor) Estimate(service, model string, params models.Params) decimal.Decimal {
	cost, known := g.rates.Estimate(service, model, params)
	if !known {
		log.Printf("cost: no rates configured for %s/%s, using conservative fallback", service, model)
	}
	return cost
}

// lockFor serializes budget read-modify-write per creator. Two concurrent
// requests must not both pass a check that only one could afford.
func (g *Governor) lockFor(creatorID string) *sync.Mutex {
	mu, _ := g.locks.LoadOrStore(creatorID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CheckBudget checks an estimate against the creator's rolling budget,
// lazily creating a default budget and applying any pending period resets
// first.
func (g *Governor) CheckBudget(ctx context.Context, creatorID string, estimate decimal.Decimal) (models.BudgetCheck, error) {
	mu := g.lockFor(creatorID)
	mu.Lock()
	defer mu.Unlock()
	return g.checkBudgetLocked(ctx, creatorID, estimate)
}

func (g *Governor) checkBudgetLocked(ctx context.Context, creatorID string, estimate decimal.Decimal) (models.BudgetCheck, error) {
	budget, err := g.loadOrCreateBudget(ctx, creatorID)
	if err != nil {
		return models.BudgetCheck{}, err
	}

	now := time.Now().UTC()
	if applyResets(budget, now) {
		budget.UpdatedAt = now
		if err := g.store.SaveBudget(ctx, *budget); err != nil {
			return models.BudgetCheck{}, fmt.Errorf("save budget resets: %w", err)
		}
	}

	newDaily := budget.DailySpent.Add(estimate)
	newWeekly := budget.WeeklySpent.Add(estimate)
	newMonthly := budget.MonthlySpent.Add(estimate)

	check := models.BudgetCheck{
		DailyRemaining:   budget.DailyLimit.Sub(newDaily),
		WeeklyRemaining:  budget.WeeklyLimit.Sub(newWeekly),
		MonthlyRemaining: budget.MonthlyLimit.Sub(newMonthly),
		AutoApprove:      estimate.LessThanOrEqual(budget.AutoApproveThreshold),
		RequiresApproval: estimate.GreaterThanOrEqual(budget.RequireApprovalAbove),
		Suspended:        budget.IsSuspended,
	}
	check.WithinLimits = newDaily.LessThanOrEqual(budget.DailyLimit) &&
		newWeekly.LessThanOrEqual(budget.WeeklyLimit) &&
		newMonthly.LessThanOrEqual(budget.MonthlyLimit) &&
		!budget.IsSuspended

	if budget.IsSuspended {
		check.Reason = "budget suspended"
		if budget.SuspensionReason != "" {
			check.Reason = "budget suspended: " + budget.SuspensionReason
		}
	} else if !check.WithinLimits {
		check.Reason = "budget limits exceeded"
	}
	return check, nil
}

func (g *Governor) loadOrCreateBudget(ctx context.Context, creatorID string) (*models.CreatorBudget, error) {
	budget, err := g.store.GetBudget(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	if budget != nil {
		return budget, nil
	}

	now := time.Now().UTC()
	b := models.CreatorBudget{
		CreatorID:            creatorID,
		DailyLimit:           decimal.NewFromFloat(g.defaults.DailyLimit).Round(2),
		WeeklyLimit:          decimal.NewFromFloat(g.defaults.WeeklyLimit).Round(2),
		MonthlyLimit:         decimal.NewFromFloat(g.defaults.MonthlyLimit).Round(2),
		DailySpent:           decimal.Zero,
		WeeklySpent:          decimal.Zero,
		MonthlySpent:         decimal.Zero,
		AutoApproveThreshold: decimal.NewFromFloat(g.defaults.AutoApproveThreshold).Round(2),
		RequireApprovalAbove: decimal.NewFromFloat(g.defaults.RequireApprovalAbove).Round(2),
		DailyResetAt:         nextDailyReset(now),
		WeeklyResetAt:        nextWeeklyReset(now),
		MonthlyResetAt:       nextMonthlyReset(now),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := g.store.SaveBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return &b, nil
}

// RequestApproval runs the approval state machine for one prospective
// operation: estimate, classify, check budget, then reject, auto-approve, or
// go pending with a 24h approval request.
func (g *Governor) RequestApproval(ctx context.Context, service, model, operation string, params models.Params, creatorID string) (*Decision, error) {
	estimate := g.Estimate(service, model, params)
	tier := Classify(estimate)

	check, err := g.CheckBudget(ctx, creatorID, estimate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if operation == "" {
		operation = "generation"
	}
	entry := models.CostEntry{
		ID:               uuid.NewString(),
		Service:          service,
		Model:            model,
		Operation:        operation,
		EstimatedCost:    estimate,
		CostTier:         tier,
		Params:           params,
		CreatorID:        creatorID,
		Status:           models.StatusPending,
		RequiresApproval: !check.AutoApprove,
		CreatedAt:        now,
	}

	var approval *models.ApprovalRequest
	switch {
	case !check.WithinLimits:
		entry.Status = models.StatusRejected
		entry.RejectionReason = check.Reason

	case check.AutoApprove && tier == models.TierLow:
		// A cost under the threshold but above the LOW band still needs
		// deliberation; auto-approval requires both conditions.
		entry.Status = models.StatusAutoApproved
		entry.ApprovedAt = now
		entry.RequiresApproval = false

	default:
		approval = &models.ApprovalRequest{
			ID:          uuid.NewString(),
			CostEntryID: entry.ID,
			CreatorID:   creatorID,
			Description: describeOperation(service, model, params),
			Estimated:   estimate,
			CostTier:    tier,
			Status:      models.StatusPending,
			ExpiresAt:   now.Add(approvalTTL),
			CreatedAt:   now,
		}
	}

	if err := g.store.SaveCostEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save cost entry: %w", err)
	}
	if approval != nil {
		if err := g.store.SaveApproval(ctx, *approval); err != nil {
			return nil, fmt.Errorf("save approval request: %w", err)
		}
		g.notify(*approval)
	}

	return &Decision{Entry: entry, Approval: approval, Budget: check}, nil
}

func (g *Governor) notify(a models.ApprovalRequest) {
	g.mu.Lock()
	notifiers := make(map[string]NotifyFunc, len(g.notifiers))
	for name, fn := range g.notifiers {
		notifiers[name] = fn
	}
	g.mu.Unlock()

	for name, fn := range notifiers {
		if err := fn(a); err != nil {
			log.Printf("cost: approval notifier %s failed: %v", name, err)
		}
	}
}

// GetApproval loads an approval request, lazily transitioning a pending
// request past its expiry to EXPIRED.
func (g *Governor) GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	a, err := g.store.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrApprovalNotFound
	}
	if a.Status == models.StatusPending && time.Now().UTC().After(a.ExpiresAt) {
		a.Status = models.StatusExpired
		if err := g.store.SaveApproval(ctx, *a); err != nil {
			return nil, fmt.Errorf("expire approval: %w", err)
		}
	}
	return a, nil
}

// Approve transitions a pending approval request (and its cost entry) to
// APPROVED. Approving an expired request fails.
func (g *Governor) Approve(ctx context.Context, id, approvedBy, notes string) error {
	a, err := g.GetApproval(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == models.StatusExpired {
		return ErrApprovalExpired
	}
	if a.Status != models.StatusPending {
		return fmt.Errorf("%w: %s", ErrNotPending, a.Status)
	}

	now := time.Now().UTC()
	a.Status = models.StatusApproved
	a.ApprovedBy = approvedBy
	a.ApprovalMethod = "manual"
	a.ApprovalNotes = notes
	a.ApprovedAt = now
	if err := g.store.SaveApproval(ctx, *a); err != nil {
		return fmt.Errorf("save approval: %w", err)
	}

	entry, err := g.store.GetCostEntry(ctx, a.CostEntryID)
	if err != nil {
		return err
	}
	if entry != nil {
		entry.Status = models.StatusApproved
		entry.ApprovedBy = approvedBy
		entry.ApprovedAt = now
		if err := g.store.SaveCostEntry(ctx, *entry); err != nil {
			return fmt.Errorf("save cost entry: %w", err)
		}
	}
	log.Printf("cost: approved operation %s by %s", id, approvedBy)
	return nil
}

// Reject transitions a pending approval request (and its cost entry) to
// REJECTED.
func (g *Governor) Reject(ctx context.Context, id, rejectedBy, reason string) error {
	a, err := g.GetApproval(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == models.StatusExpired {
		return ErrApprovalExpired
	}
	if a.Status != models.StatusPending {
		return fmt.Errorf("%w: %s", ErrNotPending, a.Status)
	}

	a.Status = models.StatusRejected
	a.RejectionReason = reason
	if err := g.store.SaveApproval(ctx, *a); err != nil {
		return fmt.Errorf("save approval: %w", err)
	}

	entry, err := g.store.GetCostEntry(ctx, a.CostEntryID)
	if err != nil {
		return err
	}
	if entry != nil {
		entry.Status = models.StatusRejected
		entry.RejectionReason = reason
		if err := g.store.SaveCostEntry(ctx, *entry); err != nil {
			return fmt.Errorf("save cost entry: %w", err)
		}
	}
	log.Printf("cost: rejected operation %s by %s: %s", id, rejectedBy, reason)
	return nil
}

// PendingApprovals lists pending approval requests, lazily expiring any past
// their deadline.
func (g *Governor) PendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error) {
	pending, err := g.store.ListPendingApprovals(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live := pending[:0]
	for _, a := range pending {
		if now.After(a.ExpiresAt) {
			a.Status = models.StatusExpired
			if err := g.store.SaveApproval(ctx, a); err != nil {
				return nil, fmt.Errorf("expire approval: %w", err)
			}
			continue
		}
		live = append(live, a)
	}
	return live, nil
}

// RecordActualCost reconciles the real cost and usage of a completed
// operation against its cost entry and increments the creator's three spent
// counters by the actual amount. This is the only place spend increases.
func (g *Governor) RecordActualCost(ctx context.Context, entryID string, actual decimal.Decimal, usage models.UsageMetrics) error {
	entry, err := g.store.GetCostEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	now := time.Now().UTC()
	actual = actual.Round(4)
	entry.ActualCost = decimal.NullDecimal{Decimal: actual, Valid: true}
	entry.Usage = usage
	entry.CompletedAt = now
	if err := g.store.SaveCostEntry(ctx, *entry); err != nil {
		return fmt.Errorf("save cost entry: %w", err)
	}

	mu := g.lockFor(entry.CreatorID)
	mu.Lock()
	defer mu.Unlock()

	budget, err := g.loadOrCreateBudget(ctx, entry.CreatorID)
	if err != nil {
		return err
	}
	applyResets(budget, now)
	budget.DailySpent = budget.DailySpent.Add(actual)
	budget.WeeklySpent = budget.WeeklySpent.Add(actual)
	budget.MonthlySpent = budget.MonthlySpent.Add(actual)
	budget.UpdatedAt = now
	if err := g.store.SaveBudget(ctx, *budget); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// RecordCacheHit records a zero-cost, auto-approved entry for a request
// served from the cache, preserving the audit trail of avoided spend.
func (g *Governor) RecordCacheHit(ctx context.Context, service, model, creatorID string, params models.Params, cacheKey string) (string, error) {
	now := time.Now().UTC()
	entry := models.CostEntry{
		ID:            uuid.NewString(),
		Service:       service,
		Model:         model,
		Operation:     "generation",
		EstimatedCost: decimal.Zero,
		ActualCost:    decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
		CostTier:      models.TierLow,
		Params:        params,
		CreatorID:     creatorID,
		Status:        models.StatusAutoApproved,
		ApprovedAt:    now,
		CacheHit:      true,
		CacheKey:      cacheKey,
		CompletedAt:   now,
		CreatedAt:     now,
	}
	if err := g.store.SaveCostEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("save cache-hit entry: %w", err)
	}
	return entry.ID, nil
}

// IsApproved reports whether a cost entry may proceed to generation.
func (g *Governor) IsApproved(ctx context.Context, entryID string) (bool, error) {
	entry, err := g.store.GetCostEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, ErrEntryNotFound
	}
	return entry.Status == models.StatusApproved || entry.Status == models.StatusAutoApproved, nil
}

// Budget returns the creator's budget with pending period resets applied.
func (g *Governor) Budget(ctx context.Context, creatorID string) (*models.CreatorBudget, error) {
	mu := g.lockFor(creatorID)
	mu.Lock()
	defer mu.Unlock()

	budget, err := g.loadOrCreateBudget(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if applyResets(budget, now) {
		budget.UpdatedAt = now
		if err := g.store.SaveBudget(ctx, *budget); err != nil {
			return nil, fmt.Errorf("save budget resets: %w", err)
		}
	}
	return budget, nil
}

func describeOperation(service, model string, params models.Params) string {
	desc := fmt.Sprintf("Generate content using %s/%s", service, model)
	if concept := strParam(params, "concept", ""); concept != "" {
		desc += " for concept: " + truncate(concept, 50)
	} else if prompt := strParam(params, "prompt", ""); prompt != "" {
		desc += " with prompt: " + truncate(prompt, 50)
	}
	return desc
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
