package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

func setupStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cost_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, context.Background()
}

func testApproval() models.ApprovalRequest {
	now := time.Now().UTC().Truncate(time.Second)
	return models.ApprovalRequest{
		ID:          "apr-1",
		CostEntryID: "cost-1",
		CreatorID:   "alice",
		Description: "Generate content using openai/gpt-4",
		Estimated:   decimal.RequireFromString("8.00"),
		CostTier:    models.TierMedium,
		Status:      models.StatusPending,
		ExpiresAt:   now.Add(24 * time.Hour),
		CreatedAt:   now,
	}
}

func TestSaveApprovalReplacesAllFields(t *testing.T) {
	s, ctx := setupStore(t)

	a := testApproval()
	if err := s.SaveApproval(ctx, a); err != nil {
		t.Fatal(err)
	}

	aged := a
	aged.Status = models.StatusExpired
	aged.ExpiresAt = a.ExpiresAt.Add(-25 * time.Hour)
	aged.ApprovalNotes = "aged out"
	if err := s.SaveApproval(ctx, aged); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetApproval(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected approval after upsert")
	}
	if got.Status != models.StatusExpired {
		t.Errorf("expected status expired after upsert, got %s", got.Status)
	}
	if !got.ExpiresAt.Equal(aged.ExpiresAt) {
		t.Errorf("upsert must replace expires_at: want %s, got %s", aged.ExpiresAt, got.ExpiresAt)
	}
	if got.ApprovalNotes != "aged out" {
		t.Errorf("upsert must replace approval notes, got %q", got.ApprovalNotes)
	}
}

func TestGetApprovalAbsent(t *testing.T) {
	s, ctx := setupStore(t)

	got, err := s.GetApproval(ctx, "no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for an absent approval, got %+v", got)
	}
}
