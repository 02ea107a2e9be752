// Package sqlite persists cost entries, approval requests, and creator
// budgets. Monetary amounts are stored as decimal strings, never floats.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// Store implements cost.Store on SQLite.
type Store struct {
	db *sql.DB
}

const createTables = `
CREATE TABLE IF NOT EXISTS ai_service_costs (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	operation TEXT NOT NULL,
	estimated_cost TEXT NOT NULL,
	actual_cost TEXT,
	cost_tier TEXT NOT NULL,
	params TEXT NOT NULL,
	creator_id TEXT NOT NULL,
	status TEXT NOT NULL,
	requires_approval INTEGER NOT NULL DEFAULT 0,
	approved_by TEXT NOT NULL DEFAULT '',
	approved_at DATETIME,
	rejection_reason TEXT NOT NULL DEFAULT '',
	usage_metrics TEXT NOT NULL DEFAULT '{}',
	completed_at DATETIME,
	cache_hit INTEGER NOT NULL DEFAULT 0,
	cache_key TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_costs_creator ON ai_service_costs(creator_id, created_at);
CREATE INDEX IF NOT EXISTS idx_costs_status ON ai_service_costs(status);

CREATE TABLE IF NOT EXISTS approval_requests (
	id TEXT PRIMARY KEY,
	cost_entry_id TEXT NOT NULL,
	creator_id TEXT NOT NULL,
	description TEXT NOT NULL,
	estimated_cost TEXT NOT NULL,
	cost_tier TEXT NOT NULL,
	status TEXT NOT NULL,
	approved_by TEXT NOT NULL DEFAULT '',
	approval_method TEXT NOT NULL DEFAULT '',
	approval_notes TEXT NOT NULL DEFAULT '',
	rejection_reason TEXT NOT NULL DEFAULT '',
	expires_at DATETIME NOT NULL,
	approved_at DATETIME,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approvals_status ON approval_requests(status, expires_at);

CREATE TABLE IF NOT EXISTS creator_budgets (
	creator_id TEXT PRIMARY KEY,
	daily_limit TEXT NOT NULL,
	weekly_limit TEXT NOT NULL,
	monthly_limit TEXT NOT NULL,
	daily_spent TEXT NOT NULL,
	weekly_spent TEXT NOT NULL,
	monthly_spent TEXT NOT NULL,
	auto_approve_threshold TEXT NOT NULL,
	require_approval_above TEXT NOT NULL,
	daily_reset_at DATETIME NOT NULL,
	weekly_reset_at DATETIME NOT NULL,
	monthly_reset_at DATETIME NOT NULL,
	is_suspended INTEGER NOT NULL DEFAULT 0,
	suspension_reason TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// New opens the cost database and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cost db: %w", err)
	}
	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cost db: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveCostEntry inserts or fully replaces a cost entry.
func (s *Store) SaveCostEntry(ctx context.Context, e models.CostEntry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	usage, err := json.Marshal(e.Usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}

	var actual sql.NullString
	if e.ActualCost.Valid {
		actual = sql.NullString{String: e.ActualCost.Decimal.String(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ai_service_costs
			(id, service, model, operation, estimated_cost, actual_cost, cost_tier,
			 params, creator_id, status, requires_approval, approved_by, approved_at,
			 rejection_reason, usage_metrics, completed_at, cache_hit, cache_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			actual_cost = excluded.actual_cost,
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			rejection_reason = excluded.rejection_reason,
			usage_metrics = excluded.usage_metrics,
			completed_at = excluded.completed_at`,
		e.ID, e.Service, e.Model, e.Operation, e.EstimatedCost.String(), actual,
		string(e.CostTier), string(params), e.CreatorID, string(e.Status),
		boolInt(e.RequiresApproval), e.ApprovedBy, nullTime(e.ApprovedAt),
		e.RejectionReason, string(usage), nullTime(e.CompletedAt),
		boolInt(e.CacheHit), e.CacheKey, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save cost entry: %w", err)
	}
	return nil
}

const costColumns = `id, service, model, operation, estimated_cost, actual_cost, cost_tier,
	params, creator_id, status, requires_approval, approved_by, approved_at,
	rejection_reason, usage_metrics, completed_at, cache_hit, cache_key, created_at`

// GetCostEntry returns a cost entry by id, or (nil, nil) when absent.
func (s *Store) GetCostEntry(ctx context.Context, id string) (*models.CostEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+costColumns+` FROM ai_service_costs WHERE id = ?`, id,
	)
	e, err := scanCostEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cost entry: %w", err)
	}
	return e, nil
}

// ListCostEntries returns recent entries, newest first. An empty creatorID
// lists across all creators.
func (s *Store) ListCostEntries(ctx context.Context, creatorID string, limit int) ([]models.CostEntry, error) {
	query := `SELECT ` + costColumns + ` FROM ai_service_costs`
	args := []any{}
	if creatorID != "" {
		query += ` WHERE creator_id = ?`
		args = append(args, creatorID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cost entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CostEntry
	for rows.Next() {
		e, err := scanCostEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cost entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SaveApproval inserts or fully replaces an approval request.
func (s *Store) SaveApproval(ctx context.Context, a models.ApprovalRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO approval_requests
			(id, cost_entry_id, creator_id, description, estimated_cost, cost_tier,
			 status, approved_by, approval_method, approval_notes, rejection_reason,
			 expires_at, approved_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			estimated_cost = excluded.estimated_cost,
			cost_tier = excluded.cost_tier,
			status = excluded.status,
			approved_by = excluded.approved_by,
			approval_method = excluded.approval_method,
			approval_notes = excluded.approval_notes,
			rejection_reason = excluded.rejection_reason,
			expires_at = excluded.expires_at,
			approved_at = excluded.approved_at`,
		a.ID, a.CostEntryID, a.CreatorID, a.Description, a.Estimated.String(),
		string(a.CostTier), string(a.Status), a.ApprovedBy, a.ApprovalMethod,
		a.ApprovalNotes, a.RejectionReason, a.ExpiresAt.UTC(),
		nullTime(a.ApprovedAt), a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save approval request: %w", err)
	}
	return nil
}

const approvalColumns = `id, cost_entry_id, creator_id, description, estimated_cost, cost_tier,
	status, approved_by, approval_method, approval_notes, rejection_reason,
	expires_at, approved_at, created_at`

// GetApproval returns an approval request by id, or (nil, nil) when absent.
func (s *Store) GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id,
	)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval request: %w", err)
	}
	return a, nil
}

// ListPendingApprovals returns pending requests, oldest first.
func (s *Store) ListPendingApprovals(ctx context.Context) ([]models.ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests
		 WHERE status = ? ORDER BY created_at ASC`,
		string(models.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []models.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

// GetBudget returns a creator's budget, or (nil, nil) when none exists yet.
func (s *Store) GetBudget(ctx context.Context, creatorID string) (*models.CreatorBudget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT creator_id, daily_limit, weekly_limit, monthly_limit,
			daily_spent, weekly_spent, monthly_spent,
			auto_approve_threshold, require_approval_above,
			daily_reset_at, weekly_reset_at, monthly_reset_at,
			is_suspended, suspension_reason, created_at, updated_at
		 FROM creator_budgets WHERE creator_id = ?`,
		creatorID,
	)

	var b models.CreatorBudget
	var dl, wl, ml, ds, ws, ms, aat, raa string
	var suspended int
	err := row.Scan(&b.CreatorID, &dl, &wl, &ml, &ds, &ws, &ms, &aat, &raa,
		&b.DailyResetAt, &b.WeeklyResetAt, &b.MonthlyResetAt,
		&suspended, &b.SuspensionReason, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&b.DailyLimit, dl}, {&b.WeeklyLimit, wl}, {&b.MonthlyLimit, ml},
		{&b.DailySpent, ds}, {&b.WeeklySpent, ws}, {&b.MonthlySpent, ms},
		{&b.AutoApproveThreshold, aat}, {&b.RequireApprovalAbove, raa},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", f.src, err)
		}
	}
	b.IsSuspended = suspended != 0
	return &b, nil
}

// SaveBudget inserts or fully replaces a creator budget.
func (s *Store) SaveBudget(ctx context.Context, b models.CreatorBudget) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO creator_budgets
			(creator_id, daily_limit, weekly_limit, monthly_limit,
			 daily_spent, weekly_spent, monthly_spent,
			 auto_approve_threshold, require_approval_above,
			 daily_reset_at, weekly_reset_at, monthly_reset_at,
			 is_suspended, suspension_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(creator_id) DO UPDATE SET
			daily_limit = excluded.daily_limit,
			weekly_limit = excluded.weekly_limit,
			monthly_limit = excluded.monthly_limit,
			daily_spent = excluded.daily_spent,
			weekly_spent = excluded.weekly_spent,
			monthly_spent = excluded.monthly_spent,
			auto_approve_threshold = excluded.auto_approve_threshold,
			require_approval_above = excluded.require_approval_above,
			daily_reset_at = excluded.daily_reset_at,
			weekly_reset_at = excluded.weekly_reset_at,
			monthly_reset_at = excluded.monthly_reset_at,
			is_suspended = excluded.is_suspended,
			suspension_reason = excluded.suspension_reason,
			updated_at = excluded.updated_at`,
		b.CreatorID, b.DailyLimit.String(), b.WeeklyLimit.String(), b.MonthlyLimit.String(),
		b.DailySpent.String(), b.WeeklySpent.String(), b.MonthlySpent.String(),
		b.AutoApproveThreshold.String(), b.RequireApprovalAbove.String(),
		b.DailyResetAt.UTC(), b.WeeklyResetAt.UTC(), b.MonthlyResetAt.UTC(),
		boolInt(b.IsSuspended), b.SuspensionReason, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCostEntry(row scanner) (*models.CostEntry, error) {
	var e models.CostEntry
	var estimated string
	var actual sql.NullString
	var tier, status, params, usage string
	var requiresApproval, cacheHit int
	var approvedAt, completedAt sql.NullTime

	err := row.Scan(&e.ID, &e.Service, &e.Model, &e.Operation, &estimated, &actual,
		&tier, &params, &e.CreatorID, &status, &requiresApproval, &e.ApprovedBy,
		&approvedAt, &e.RejectionReason, &usage, &completedAt, &cacheHit,
		&e.CacheKey, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if e.EstimatedCost, err = decimal.NewFromString(estimated); err != nil {
		return nil, fmt.Errorf("parse estimated cost %q: %w", estimated, err)
	}
	if actual.Valid {
		d, err := decimal.NewFromString(actual.String)
		if err != nil {
			return nil, fmt.Errorf("parse actual cost %q: %w", actual.String, err)
		}
		e.ActualCost = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(usage), &e.Usage); err != nil {
		return nil, fmt.Errorf("unmarshal usage: %w", err)
	}
	e.CostTier = models.CostTier(tier)
	e.Status = models.ApprovalStatus(status)
	e.RequiresApproval = requiresApproval != 0
	e.CacheHit = cacheHit != 0
	e.ApprovedAt = approvedAt.Time
	e.CompletedAt = completedAt.Time
	return &e, nil
}

func scanApproval(row scanner) (*models.ApprovalRequest, error) {
	var a models.ApprovalRequest
	var estimated, tier, status string
	var approvedAt sql.NullTime

	err := row.Scan(&a.ID, &a.CostEntryID, &a.CreatorID, &a.Description, &estimated,
		&tier, &status, &a.ApprovedBy, &a.ApprovalMethod, &a.ApprovalNotes,
		&a.RejectionReason, &a.ExpiresAt, &approvedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if a.Estimated, err = decimal.NewFromString(estimated); err != nil {
		return nil, fmt.Errorf("parse estimated cost %q: %w", estimated, err)
	}
	a.CostTier = models.CostTier(tier)
	a.Status = models.ApprovalStatus(status)
	a.ApprovedAt = approvedAt.Time
	return &a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
